package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents the users table
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Email           string         `gorm:"uniqueIndex;not null"`
	Username        string         `gorm:"uniqueIndex;not null"`
	PasswordHash    string         `gorm:"not null"`
	DisplayName     string         `gorm:"not null"`
	ProfileImageURL sql.NullString `gorm:""`
	IsActive        bool           `gorm:"default:true"`
	CreatedAt       time.Time      `gorm:"default:now()"`
	UpdatedAt       time.Time      `gorm:"default:now()"`
}

func (User) TableName() string {
	return "users"
}
