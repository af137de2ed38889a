package ws

import (
	"context"
	"encoding/json"
	"errors"

	"chatvault/internal/events"
	"chatvault/pkg/logger"

	"go.uber.org/zap"
)

// Bridge relays envelopes from the event bus into the hub. Every API
// instance runs one, so a message published on any instance reaches the
// websocket clients of all instances.
type Bridge struct {
	sub    events.Subscriber
	hub    *Hub
	logger *logger.Logger
}

func NewBridge(sub events.Subscriber, hub *Hub, l *logger.Logger) *Bridge {
	return &Bridge{sub: sub, hub: hub, logger: l}
}

// Run blocks until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	b.logger.WithContext(ctx).Info("event bridge started",
		zap.String("pattern", events.RoomChannelPattern))

	err := b.sub.Subscribe(ctx, events.RoomChannelPattern, func(channel string, env events.Envelope) {
		frame, err := json.Marshal(env)
		if err != nil {
			b.logger.WithContext(ctx).Error("failed to marshal envelope for fan-out", zap.Error(err))
			return
		}
		b.hub.Broadcast(env.RoomID, frame)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.WithContext(ctx).Error("event bridge subscription ended", zap.Error(err))
	}
}
