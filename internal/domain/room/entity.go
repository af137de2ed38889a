package room

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Room represents the rooms table
type Room struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"not null"`
	Topic     sql.NullString `gorm:""`
	CreatedBy uuid.UUID      `gorm:"type:uuid;not null"`
	CreatedAt time.Time      `gorm:"default:now()"`
	UpdatedAt time.Time      `gorm:"default:now()"`

	// Relationships
	Participants []Participant
}

// Participant represents the participants table
type Participant struct {
	RoomID   uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Role     string        `gorm:"not null;default:'member'"`
	JoinedAt time.Time     `gorm:"default:now()"`
	AddedBy  uuid.NullUUID `gorm:"type:uuid"`
}

func (Room) TableName() string {
	return "rooms"
}

func (Participant) TableName() string {
	return "participants"
}
