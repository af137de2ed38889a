package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"chatvault/internal/domain/room"
	"chatvault/internal/repository"
	vault_errors "chatvault/pkg/errors"

	"github.com/google/uuid"
)

type RoomService struct {
	rooms repository.RoomRepository
}

func NewRoomService(rooms repository.RoomRepository) *RoomService {
	return &RoomService{rooms: rooms}
}

type CreateRoomInput struct {
	Name      string
	Topic     string
	CreatedBy uuid.UUID
}

// Create makes a room with the creator as its first participant.
func (s *RoomService) Create(ctx context.Context, in CreateRoomInput) (room.Room, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return room.Room{}, vault_errors.ErrInvalidInput
	}

	now := time.Now()
	r := room.Room{
		ID:        uuid.New(),
		Name:      in.Name,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Topic != "" {
		r.Topic = sql.NullString{String: in.Topic, Valid: true}
	}
	if err := s.rooms.Create(ctx, &r); err != nil {
		return room.Room{}, err
	}

	creator := room.Participant{
		RoomID:   r.ID,
		UserID:   in.CreatedBy,
		Role:     "owner",
		JoinedAt: now,
	}
	if err := s.rooms.AddParticipant(ctx, &creator); err != nil {
		return room.Room{}, err
	}
	r.Participants = []room.Participant{creator}

	return r, nil
}

// AddParticipant lets an existing member add another user to the room.
func (s *RoomService) AddParticipant(ctx context.Context, roomID, actorID, userID uuid.UUID) error {
	ok, err := s.rooms.IsParticipant(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return vault_errors.ErrForbidden
	}

	p := room.Participant{
		RoomID:   roomID,
		UserID:   userID,
		Role:     "member",
		JoinedAt: time.Now(),
		AddedBy:  uuid.NullUUID{UUID: actorID, Valid: true},
	}
	return s.rooms.AddParticipant(ctx, &p)
}

// RemoveParticipant lets a member leave, or the room owner remove others.
func (s *RoomService) RemoveParticipant(ctx context.Context, roomID, actorID, userID uuid.UUID) error {
	if actorID != userID {
		r, err := s.rooms.GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		if r.CreatedBy != actorID {
			return vault_errors.ErrForbidden
		}
	}
	return s.rooms.RemoveParticipant(ctx, roomID, userID)
}

func (s *RoomService) GetUserRooms(ctx context.Context, userID uuid.UUID) ([]room.Room, error) {
	return s.rooms.GetUserRooms(ctx, userID)
}

func (s *RoomService) GetParticipants(ctx context.Context, roomID, actorID uuid.UUID) ([]room.Participant, error) {
	ok, err := s.rooms.IsParticipant(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, vault_errors.ErrForbidden
	}
	return s.rooms.GetParticipants(ctx, roomID)
}

// IsParticipant exposes the membership check for transports that scope
// subscriptions by room.
func (s *RoomService) IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	return s.rooms.IsParticipant(ctx, roomID, userID)
}
