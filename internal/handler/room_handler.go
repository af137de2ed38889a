package handler

import (
	"net/http"

	"chatvault/internal/services"
	"chatvault/internal/transport/httpdto"
	vault_errors "chatvault/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RoomHandler struct {
	service *services.RoomService
}

func NewRoomHandler(service *services.RoomService) *RoomHandler {
	return &RoomHandler{service: service}
}

func (h *RoomHandler) Create(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	var req httpdto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	r, err := h.service.Create(c.Request.Context(), services.CreateRoomInput{
		Name:      req.Name,
		Topic:     req.Topic,
		CreatedBy: userID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewRoomResponse(r)))
}

func (h *RoomHandler) ListMine(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	rooms, err := h.service.GetUserRooms(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := httpdto.RoomListResponse{
		Rooms: make([]httpdto.RoomResponse, 0, len(rooms)),
	}
	for _, r := range rooms {
		resp.Rooms = append(resp.Rooms, httpdto.NewRoomResponse(r))
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *RoomHandler) AddParticipant(c *gin.Context) {
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	var req httpdto.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	if err := h.service.AddParticipant(c.Request.Context(), roomID, actorID, userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *RoomHandler) RemoveParticipant(c *gin.Context) {
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	if err := h.service.RemoveParticipant(c.Request.Context(), roomID, actorID, userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *RoomHandler) ListParticipants(c *gin.Context) {
	actorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, vault_errors.ErrUnauthorized)
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, vault_errors.ErrInvalidInput)
		return
	}

	participants, err := h.service.GetParticipants(c.Request.Context(), roomID, actorID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := httpdto.ParticipantListResponse{
		Participants: make([]httpdto.ParticipantResponse, 0, len(participants)),
	}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, httpdto.NewParticipantResponse(p))
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}
