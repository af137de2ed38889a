package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatvault/internal/domain/message"
	"chatvault/internal/domain/outbox"
	"chatvault/internal/events"
	"chatvault/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventPublisher writes domain events to the outbox table. The worker
// relays them to the bus; callers only ever touch the database, inside
// the same transaction as the state change they announce.
type EventPublisher struct {
	outboxRepo repository.OutboxRepository
}

func NewEventPublisher(outboxRepo repository.OutboxRepository) *EventPublisher {
	return &EventPublisher{outboxRepo: outboxRepo}
}

func (p *EventPublisher) PublishMessageNew(ctx context.Context, tx *gorm.DB, m message.Message) error {
	payload := events.MessageNewEvent{
		MessageID: m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
	}
	if m.Content.Valid {
		payload.Content = m.Content.String
	}
	if m.FileID.Valid {
		payload.FileID = m.FileID.String
	}
	return p.write(ctx, tx, events.EventMessageNew, "message", m.ID.String(), m.RoomID, payload)
}

func (p *EventPublisher) PublishMessageDeleted(ctx context.Context, tx *gorm.DB, m message.Message, deletedBy uuid.UUID) error {
	payload := events.MessageDeletedEvent{
		MessageID: m.ID,
		RoomID:    m.RoomID,
		DeletedBy: deletedBy,
	}
	return p.write(ctx, tx, events.EventMessageDeleted, "message", m.ID.String(), m.RoomID, payload)
}

func (p *EventPublisher) PublishFileDeleted(ctx context.Context, tx *gorm.DB, fileID string, roomID, deletedBy uuid.UUID) error {
	payload := events.FileDeletedEvent{
		FileID:    fileID,
		RoomID:    roomID,
		DeletedBy: deletedBy,
	}
	return p.write(ctx, tx, events.EventFileDeleted, "file", fileID, roomID, payload)
}

func (p *EventPublisher) write(ctx context.Context, tx *gorm.DB, eventType events.EventType, aggregateType, aggregateID string, roomID uuid.UUID, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	env := events.Envelope{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoomID:        roomID,
		OccurredAt:    time.Now(),
		Payload:       body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	return p.outboxRepo.Create(ctx, tx, &outbox.OutboxEvent{
		ID:            uuid.New(),
		EventType:     string(eventType),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       data,
		Status:        outbox.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	})
}
