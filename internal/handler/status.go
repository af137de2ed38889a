package handler

import (
	"errors"
	"net/http"

	"chatvault/internal/transport/httpdto"
	vault_errors "chatvault/pkg/errors"

	"github.com/gin-gonic/gin"
)

// writeError translates a service error into its HTTP shape. Path
// violations deliberately surface as a generic 500; the response never
// names the path machinery.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, vault_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
	case errors.Is(err, vault_errors.ErrNoFile):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("no file provided", "NO_FILE"))
	case errors.Is(err, vault_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, vault_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("access denied", "FORBIDDEN"))
	case errors.Is(err, vault_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, vault_errors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("already exists", "ALREADY_EXISTS"))
	case errors.Is(err, vault_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("conflict", "CONFLICT"))
	case errors.Is(err, vault_errors.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, httpdto.NewErrorResponse("file too large", "TOO_LARGE"))
	case errors.Is(err, vault_errors.ErrUnsupportedPreview):
		c.JSON(http.StatusUnsupportedMediaType, httpdto.NewErrorResponse("preview not supported for this file type", "UNSUPPORTED_PREVIEW"))
	case errors.Is(err, vault_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
	case errors.Is(err, vault_errors.ErrIngestFailed):
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("file ingest failed", "INGEST_FAILED"))
	case errors.Is(err, vault_errors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("service unavailable", "SERVICE_UNAVAILABLE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
