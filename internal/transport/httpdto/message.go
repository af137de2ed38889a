package httpdto

import (
	"time"

	"chatvault/internal/domain/message"
)

type SendMessageRequest struct {
	RoomID  string `json:"room_id" binding:"required,uuid"`
	Content string `json:"content"`
	FileID  string `json:"file_id"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	FileID    string    `json:"file_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessageResponse(m message.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID.String(),
		RoomID:    m.RoomID.String(),
		SenderID:  m.SenderID.String(),
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
	}
	if m.Content.Valid {
		resp.Content = m.Content.String
	}
	if m.FileID.Valid {
		resp.FileID = m.FileID.String
	}
	return resp
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}
