package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"snapshare/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying post events.
const Channel = "snapshare:events"

// RedisPublisher publishes events on Channel.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a RedisPublisher. A nil client makes Publish a no-op.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, evt Event) error {
	if p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.rdb.Publish(ctx, Channel, payload).Err()
}

// Close implements Publisher. The Redis client is owned by the cache package.
func (p *RedisPublisher) Close() error { return nil }

// Subscribe calls onMessage with each raw payload on Channel until ctx is done.
func Subscribe(ctx context.Context, rdb *redis.Client, onMessage func(payload string)) error {
	if rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	sub := rdb.Subscribe(ctx, Channel)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
