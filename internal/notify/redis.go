package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventTypeTurn is the envelope type of turn announcements.
const EventTypeTurn = "karaoke.turn"

// DefaultChannel is the pub/sub channel events are published to.
const DefaultChannel = "karaoke:events"

// envelope is the message shape chat bridges subscribe to.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	Message string `json:"message"`
}

// Redis publishes events to a pub/sub channel for chat bridges to relay.
type Redis struct {
	rdb     *redis.Client
	channel string
}

// NewRedis creates a publisher on channel (DefaultChannel when empty).
func NewRedis(rdb *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{rdb: rdb, channel: channel}
}

func (r *Redis) Notify(ctx context.Context, e Event) error {
	data, err := json.Marshal(envelope{Type: EventTypeTurn, Payload: e, Message: e.Message()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
