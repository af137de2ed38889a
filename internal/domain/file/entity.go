package file

import (
	"time"

	"github.com/google/uuid"
)

// File represents the files table. The primary key is the generated
// storage identifier, never a caller-supplied name.
type File struct {
	ID           string    `gorm:"primaryKey"`
	OriginalName string    `gorm:"not null"`
	MimeType     string    `gorm:"not null"`
	SizeBytes    int64     `gorm:"not null"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null"`
	Location     string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"default:now()"`
}

func (File) TableName() string {
	return "files"
}
