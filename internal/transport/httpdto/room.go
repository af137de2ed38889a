package httpdto

import (
	"time"

	"chatvault/internal/domain/room"
)

type CreateRoomRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=128"`
	Topic string `json:"topic" binding:"max=256"`
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Topic     string    `json:"topic,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRoomResponse(r room.Room) RoomResponse {
	resp := RoomResponse{
		ID:        r.ID.String(),
		Name:      r.Name,
		CreatedBy: r.CreatedBy.String(),
		CreatedAt: r.CreatedAt,
	}
	if r.Topic.Valid {
		resp.Topic = r.Topic.String
	}
	return resp
}

type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

type ParticipantResponse struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func NewParticipantResponse(p room.Participant) ParticipantResponse {
	return ParticipantResponse{
		UserID:   p.UserID.String(),
		Role:     p.Role,
		JoinedAt: p.JoinedAt,
	}
}

type ParticipantListResponse struct {
	Participants []ParticipantResponse `json:"participants"`
}
