package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"chatvault/internal/domain/message"
	"chatvault/internal/repository"
	vault_errors "chatvault/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageService struct {
	db        *gorm.DB
	messages  repository.MessageRepository
	rooms     repository.RoomRepository
	files     repository.FileRepository
	publisher *EventPublisher
}

func NewMessageService(
	db *gorm.DB,
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	files repository.FileRepository,
	publisher *EventPublisher,
) *MessageService {
	return &MessageService{
		db:        db,
		messages:  messages,
		rooms:     rooms,
		files:     files,
		publisher: publisher,
	}
}

type SendInput struct {
	SenderID uuid.UUID
	RoomID   uuid.UUID
	Content  string
	FileID   string
}

// Send posts a message to a room the sender belongs to. A file reference
// must name a file the sender uploaded; attaching someone else's upload
// is refused. The message row and its outbox event commit together.
func (s *MessageService) Send(ctx context.Context, in SendInput) (message.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" && in.FileID == "" {
		return message.Message{}, vault_errors.ErrInvalidInput
	}

	ok, err := s.rooms.IsParticipant(ctx, in.RoomID, in.SenderID)
	if err != nil {
		return message.Message{}, err
	}
	if !ok {
		return message.Message{}, vault_errors.ErrForbidden
	}

	msgType := "text"
	if in.FileID != "" {
		f, err := s.files.GetByID(ctx, in.FileID)
		if err != nil {
			return message.Message{}, err
		}
		if f.OwnerID != in.SenderID {
			return message.Message{}, vault_errors.ErrForbidden
		}
		msgType = "file"
	}

	m := message.Message{
		ID:        uuid.New(),
		RoomID:    in.RoomID,
		SenderID:  in.SenderID,
		Type:      msgType,
		CreatedAt: time.Now(),
	}
	if in.Content != "" {
		m.Content = sql.NullString{String: in.Content, Valid: true}
	}
	if in.FileID != "" {
		m.FileID = sql.NullString{String: in.FileID, Valid: true}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.messages.Create(ctx, tx, &m); err != nil {
			return err
		}
		return s.publisher.PublishMessageNew(ctx, tx, m)
	})
	if err != nil {
		return message.Message{}, err
	}

	return m, nil
}

// ListRoom returns up to limit messages in a room the caller belongs to,
// newest first, strictly before the given timestamp.
func (s *MessageService) ListRoom(ctx context.Context, userID, roomID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	ok, err := s.rooms.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, vault_errors.ErrForbidden
	}

	if before.IsZero() {
		before = time.Now()
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messages.ListRoomMessages(ctx, roomID, before, limit)
}

// Delete soft-deletes a message its sender posted.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return vault_errors.ErrForbidden
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return err
	}
	return s.publisher.PublishMessageDeleted(ctx, nil, m, userID)
}
