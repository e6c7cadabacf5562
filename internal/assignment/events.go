package assignment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel assignment changes are
// published on.
const Channel = "cleancare.assignment.changed"

// Changed announces that a staff identity's scope changed. Version is
// the per-staff scope version committed with the mutation; it only
// ever increases, so consumers can order events and detect that the
// state they read is at least as new as the event that woke them.
type Changed struct {
	StaffID uuid.UUID `json:"staff_id"`
	Version int64     `json:"version"`
	At      time.Time `json:"at"`
}

// Bus carries AssignmentChanged events from the store to whoever
// reconciles on them (the notification scope guard).
type Bus interface {
	Publish(ctx context.Context, ev Changed) error
	// Subscribe delivers events until ctx is cancelled, then closes the
	// channel.
	Subscribe(ctx context.Context) (<-chan Changed, error)
}

// RedisBus is the production Bus: Redis pub/sub, JSON payloads.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, ev Changed) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal assignment event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish assignment event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Changed, error) {
	sub := b.client.Subscribe(ctx, Channel)

	// Force the subscription to be established before we return, so a
	// caller that publishes right after subscribing cannot lose events.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel, err)
	}

	out := make(chan Changed)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Changed
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("dropping malformed assignment event", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
