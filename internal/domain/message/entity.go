package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message represents the messages table
type Message struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID      `gorm:"type:uuid;not null"`
	Type      string         `gorm:"not null;default:'text'"`
	Content   sql.NullString `gorm:""`
	FileID    sql.NullString `gorm:"index"`
	CreatedAt time.Time      `gorm:"default:now()"`
	DeletedAt sql.NullTime   `gorm:""`
}

func (Message) TableName() string {
	return "messages"
}
