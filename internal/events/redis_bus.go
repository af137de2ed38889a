package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Bus publishes event envelopes for delivery to connected clients.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
}

// Subscriber consumes envelopes from the bus.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string, handler func(channel string, env Envelope)) error
}

// RedisBus implements Bus and Subscriber over Redis Pub/Sub. Delivery is
// at-most-once per subscriber; durability comes from the outbox table in
// front of it.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	return b.client.Publish(ctx, RoomChannel(env.RoomID), data).Err()
}

// Subscribe blocks, invoking handler for every envelope received on
// channels matching pattern, until ctx is cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, pattern string, handler func(channel string, env Envelope)) error {
	sub := b.client.PSubscribe(ctx, pattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			handler(msg.Channel, env)
		}
	}
}
