package handler

import (
	"net/http"
	"strconv"
	"time"

	"chatvault/internal/services"
	"chatvault/internal/transport/httpdto"
	vault_errors "chatvault/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	m, err := h.service.Send(c.Request.Context(), services.SendInput{
		SenderID: userID,
		RoomID:   roomID,
		Content:  req.Content,
		FileID:   req.FileID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewMessageResponse(m)))
}

func (h *MessageHandler) ListRoom(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		before, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, vault_errors.ErrInvalidInput)
			return
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.service.ListRoom(c.Request.Context(), userID, roomID, before, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := httpdto.MessageListResponse{
		Messages: make([]httpdto.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, httpdto.NewMessageResponse(m))
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, messageID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
