package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chatvault/internal/domain/outbox"
	"chatvault/internal/events"
	vault_errors "chatvault/pkg/errors"
	"chatvault/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeOutboxRepo struct {
	rows map[string]*outbox.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{rows: make(map[string]*outbox.OutboxEvent)}
}

func (r *fakeOutboxRepo) Create(_ context.Context, _ *gorm.DB, ev *outbox.OutboxEvent) error {
	r.rows[ev.ID.String()] = ev
	return nil
}

func (r *fakeOutboxRepo) GetPending(_ context.Context, limit int) ([]outbox.OutboxEvent, error) {
	var out []outbox.OutboxEvent
	for _, ev := range r.rows {
		if ev.Status == outbox.StatusPending {
			out = append(out, *ev)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkProcessing(_ context.Context, id string) error {
	ev, ok := r.rows[id]
	if !ok {
		return vault_errors.ErrNotFound
	}
	ev.Status = outbox.StatusProcessing
	return nil
}

func (r *fakeOutboxRepo) MarkCompleted(_ context.Context, id string) error {
	ev, ok := r.rows[id]
	if !ok {
		return vault_errors.ErrNotFound
	}
	ev.Status = outbox.StatusCompleted
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, id string, msg string) error {
	ev, ok := r.rows[id]
	if !ok {
		return vault_errors.ErrNotFound
	}
	ev.Status = outbox.StatusFailed
	ev.Error = msg
	return nil
}

func (r *fakeOutboxRepo) IncrementRetry(_ context.Context, id string) error {
	ev, ok := r.rows[id]
	if !ok {
		return vault_errors.ErrNotFound
	}
	ev.RetryCount++
	ev.Status = outbox.StatusPending
	return nil
}

type fakeBus struct {
	published []events.Envelope
	err       error
}

func (b *fakeBus) Publish(_ context.Context, env events.Envelope) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, env)
	return nil
}

func pendingEvent(t *testing.T, roomID uuid.UUID) *outbox.OutboxEvent {
	t.Helper()
	env := events.Envelope{
		EventType:     events.EventMessageNew,
		AggregateType: "message",
		AggregateID:   uuid.New().String(),
		RoomID:        roomID,
		OccurredAt:    time.Now(),
		Payload:       json.RawMessage(`{}`),
	}
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return &outbox.OutboxEvent{
		ID:        uuid.New(),
		EventType: string(env.EventType),
		Payload:   data,
		Status:    outbox.StatusPending,
	}
}

func TestOutboxWorkerPublishesPending(t *testing.T) {
	repo := newFakeOutboxRepo()
	bus := &fakeBus{}
	worker := NewOutboxWorker(repo, bus, logger.NewNop())

	roomID := uuid.New()
	ev := pendingEvent(t, roomID)
	require.NoError(t, repo.Create(context.Background(), nil, ev))

	worker.drain(context.Background())

	require.Len(t, bus.published, 1)
	assert.Equal(t, roomID, bus.published[0].RoomID)
	assert.Equal(t, outbox.StatusCompleted, repo.rows[ev.ID.String()].Status)
}

func TestOutboxWorkerRetriesOnPublishFailure(t *testing.T) {
	repo := newFakeOutboxRepo()
	bus := &fakeBus{err: errors.New("redis down")}
	worker := NewOutboxWorker(repo, bus, logger.NewNop())

	ev := pendingEvent(t, uuid.New())
	require.NoError(t, repo.Create(context.Background(), nil, ev))

	worker.drain(context.Background())

	row := repo.rows[ev.ID.String()]
	assert.Equal(t, outbox.StatusPending, row.Status)
	assert.Equal(t, 1, row.RetryCount)

	// Once the bus recovers the same row goes through.
	bus.err = nil
	worker.drain(context.Background())
	assert.Equal(t, outbox.StatusCompleted, row.Status)
}

func TestOutboxWorkerParksAfterMaxRetries(t *testing.T) {
	repo := newFakeOutboxRepo()
	bus := &fakeBus{err: errors.New("still down")}
	worker := NewOutboxWorker(repo, bus, logger.NewNop())

	ev := pendingEvent(t, uuid.New())
	ev.RetryCount = outboxMaxRetries
	require.NoError(t, repo.Create(context.Background(), nil, ev))

	worker.drain(context.Background())

	row := repo.rows[ev.ID.String()]
	assert.Equal(t, outbox.StatusFailed, row.Status)
	assert.NotEmpty(t, row.Error)
}

func TestOutboxWorkerParksMalformedPayload(t *testing.T) {
	repo := newFakeOutboxRepo()
	bus := &fakeBus{}
	worker := NewOutboxWorker(repo, bus, logger.NewNop())

	ev := &outbox.OutboxEvent{
		ID:      uuid.New(),
		Payload: []byte("not json"),
		Status:  outbox.StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), nil, ev))

	worker.drain(context.Background())

	assert.Empty(t, bus.published)
	assert.Equal(t, outbox.StatusFailed, repo.rows[ev.ID.String()].Status)
}
