package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatvault/internal/domain/file"
	"chatvault/internal/domain/message"
	"chatvault/internal/domain/outbox"
	"chatvault/internal/domain/room"
	"chatvault/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	UpdateProfileImage(ctx context.Context, userID uuid.UUID, imageURL string) error
}

type RoomRepository interface {
	Create(ctx context.Context, r *room.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (room.Room, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddParticipant(ctx context.Context, p *room.Participant) error
	RemoveParticipant(ctx context.Context, roomID, userID uuid.UUID) error
	GetParticipants(ctx context.Context, roomID uuid.UUID) ([]room.Participant, error)
	IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	GetUserRooms(ctx context.Context, userID uuid.UUID) ([]room.Room, error)
}

type MessageRepository interface {
	// Create inserts within tx when tx is non-nil, so a message and its
	// outbox event commit atomically.
	Create(ctx context.Context, tx *gorm.DB, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	GetByFileID(ctx context.Context, fileID string) (message.Message, error)
	ListRoomMessages(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]message.Message, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type FileRepository interface {
	Create(ctx context.Context, f *file.File) error
	GetByID(ctx context.Context, id string) (file.File, error)
	Delete(ctx context.Context, id string) error
	GetUserFiles(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]file.File, int64, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *outbox.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errorMsg string) error
	IncrementRetry(ctx context.Context, id string) error
}
