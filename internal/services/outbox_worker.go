package services

import (
	"context"
	"encoding/json"
	"time"

	"chatvault/internal/domain/outbox"
	"chatvault/internal/events"
	"chatvault/internal/repository"
	"chatvault/pkg/logger"

	"go.uber.org/zap"
)

const (
	outboxBatchSize    = 50
	outboxPollInterval = 2 * time.Second
	outboxMaxRetries   = 9
)

// OutboxWorker drains pending outbox rows onto the event bus. A row that
// keeps failing is parked as FAILED after outboxMaxRetries attempts so
// one poison event cannot wedge the queue.
type OutboxWorker struct {
	repo   repository.OutboxRepository
	bus    events.Bus
	logger *logger.Logger
}

func NewOutboxWorker(repo repository.OutboxRepository, bus events.Bus, l *logger.Logger) *OutboxWorker {
	return &OutboxWorker{repo: repo, bus: bus, logger: l}
}

// Run polls until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	w.logger.WithContext(ctx).Info("outbox worker started",
		zap.Duration("poll_interval", outboxPollInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.WithContext(ctx).Info("outbox worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	pending, err := w.repo.GetPending(ctx, outboxBatchSize)
	if err != nil {
		w.logger.WithContext(ctx).Error("failed to fetch pending outbox events", zap.Error(err))
		return
	}

	for _, ev := range pending {
		w.process(ctx, ev)
	}
}

func (w *OutboxWorker) process(ctx context.Context, ev outbox.OutboxEvent) {
	id := ev.ID.String()

	if err := w.repo.MarkProcessing(ctx, id); err != nil {
		// Another instance likely claimed it.
		return
	}

	var env events.Envelope
	if err := json.Unmarshal(ev.Payload, &env); err != nil {
		w.logger.WithContext(ctx).Error("outbox event has malformed payload",
			zap.String("event_id", id), zap.Error(err))
		if mErr := w.repo.MarkFailed(ctx, id, "malformed payload: "+err.Error()); mErr != nil {
			w.logger.WithContext(ctx).Error("failed to mark outbox event failed",
				zap.String("event_id", id), zap.Error(mErr))
		}
		return
	}

	if err := w.bus.Publish(ctx, env); err != nil {
		w.logger.WithContext(ctx).Warn("failed to publish outbox event",
			zap.String("event_id", id),
			zap.Int("retry_count", ev.RetryCount),
			zap.Error(err))
		if ev.RetryCount >= outboxMaxRetries {
			if mErr := w.repo.MarkFailed(ctx, id, err.Error()); mErr != nil {
				w.logger.WithContext(ctx).Error("failed to mark outbox event failed",
					zap.String("event_id", id), zap.Error(mErr))
			}
			return
		}
		if rErr := w.repo.IncrementRetry(ctx, id); rErr != nil {
			w.logger.WithContext(ctx).Error("failed to requeue outbox event",
				zap.String("event_id", id), zap.Error(rErr))
		}
		return
	}

	if err := w.repo.MarkCompleted(ctx, id); err != nil {
		w.logger.WithContext(ctx).Error("failed to mark outbox event completed",
			zap.String("event_id", id), zap.Error(err))
	}
}
