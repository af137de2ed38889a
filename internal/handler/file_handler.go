package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"chatvault/internal/services"
	"chatvault/internal/transport/httpdto"
	vault_errors "chatvault/pkg/errors"
	"chatvault/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stager spools an upload stream to temporary storage before ingest.
// Satisfied by storage.Local.
type Stager interface {
	Stage(src io.Reader) (string, int64, error)
	Discard(stagedPath string) error
}

type FileHandler struct {
	files          *services.FileService
	presign        *services.PresignService
	stager         Stager
	maxUploadBytes int64
	presignTTL     time.Duration
	logger         *logger.Logger
}

func NewFileHandler(
	files *services.FileService,
	presign *services.PresignService,
	stager Stager,
	maxUploadBytes int64,
	presignTTL time.Duration,
	l *logger.Logger,
) *FileHandler {
	return &FileHandler{
		files:          files,
		presign:        presign,
		stager:         stager,
		maxUploadBytes: maxUploadBytes,
		presignTTL:     presignTTL,
		logger:         l,
	}
}

// Upload accepts a multipart file, stages it, and ingests it.
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, vault_errors.ErrTooLarge)
			return
		}
		writeError(c, vault_errors.ErrNoFile)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		writeError(c, vault_errors.ErrNoFile)
		return
	}
	defer src.Close()

	stagedPath, size, err := h.stager.Stage(src)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Error("failed to stage upload", zap.Error(err))
		writeError(c, vault_errors.ErrIngestFailed)
		return
	}

	f, err := h.files.Ingest(c.Request.Context(), services.IngestInput{
		UploaderID:   userID,
		StagedPath:   stagedPath,
		OriginalName: fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		SizeBytes:    size,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewFileResponse(f)))
}

// Download streams the file as an attachment.
func (h *FileHandler) Download(c *gin.Context) {
	h.deliver(c, services.DispositionAttachment)
}

// View streams the file inline for browser preview.
func (h *FileHandler) View(c *gin.Context) {
	h.deliver(c, services.DispositionInline)
}

func (h *FileHandler) deliver(c *gin.Context, mode services.Disposition) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	fileID := c.Param("id")
	if fileID == "" {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	d, err := h.files.Deliver(c.Request.Context(), userID, fileID, mode)
	if err != nil {
		writeError(c, err)
		return
	}
	defer d.Content.Close()

	for k, v := range d.Headers {
		c.Header(k, v)
	}
	c.Status(http.StatusOK)

	// Headers are already on the wire; a failure mid-copy can only be
	// logged, not turned into an error response.
	if _, err := io.Copy(c.Writer, d.Content); err != nil {
		h.logger.WithContext(c.Request.Context()).Warn("file stream interrupted",
			zap.String("file_id", d.File.ID), zap.Error(err))
	}
}

// Delete removes a file the caller owns.
func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	fileID := c.Param("id")
	if fileID == "" {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	if err := h.files.Delete(c.Request.Context(), userID, fileID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// ListMine returns the caller's uploads, newest first.
func (h *FileHandler) ListMine(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	files, total, err := h.files.GetUserFiles(c.Request.Context(), userID, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := httpdto.FileListResponse{
		Files: make([]httpdto.FileResponse, 0, len(files)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for _, f := range files {
		resp.Files = append(resp.Files, httpdto.NewFileResponse(f))
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

// Presign returns a time-boxed direct-to-bucket upload URL.
func (h *FileHandler) Presign(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	var req httpdto.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}
	if req.SizeBytes > h.maxUploadBytes {
		writeError(c, vault_errors.ErrTooLarge)
		return
	}

	upload, err := h.presign.CreateUpload(c.Request.Context(), services.PresignInput{
		UploaderID:   userID,
		OriginalName: req.FileName,
		ContentType:  req.ContentType,
		SizeBytes:    req.SizeBytes,
	}, h.presignTTL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(upload))
}

// PresignProfile returns an upload URL for a profile image.
func (h *FileHandler) PresignProfile(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	var req httpdto.ProfilePresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	upload, err := h.presign.CreateProfileUpload(c.Request.Context(), services.ProfilePresignInput{
		UserID:      userID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	}, h.presignTTL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(upload))
}

// CompleteProfile records an uploaded profile image on the user.
func (h *FileHandler) CompleteProfile(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	var req httpdto.ProfileCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	imageURL, err := h.presign.CompleteProfileUpload(c.Request.Context(), userID, req.FileKey)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ProfileImageResponse{ProfileImageURL: imageURL}))
}
