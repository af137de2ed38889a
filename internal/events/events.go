package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMessageNew     EventType = "message.new"
	EventMessageDeleted EventType = "message.deleted"
	EventFileDeleted    EventType = "file.deleted"
)

// Envelope is the wire format carried over the event bus.
type Envelope struct {
	EventType     EventType       `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	RoomID        uuid.UUID       `json:"room_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// MessageNewEvent is the payload for EventMessageNew.
type MessageNewEvent struct {
	MessageID uuid.UUID `json:"message_id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	FileID    string    `json:"file_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageDeletedEvent is the payload for EventMessageDeleted.
type MessageDeletedEvent struct {
	MessageID uuid.UUID `json:"message_id"`
	RoomID    uuid.UUID `json:"room_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

// FileDeletedEvent is the payload for EventFileDeleted.
type FileDeletedEvent struct {
	FileID    string    `json:"file_id"`
	RoomID    uuid.UUID `json:"room_id,omitempty"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

// RoomChannel names the pub/sub channel carrying a room's events.
func RoomChannel(roomID uuid.UUID) string {
	return fmt.Sprintf("channel:room:%s", roomID)
}

// RoomChannelPattern matches every room channel.
const RoomChannelPattern = "channel:room:*"
