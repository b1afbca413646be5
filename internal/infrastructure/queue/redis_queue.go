// Package queue publishes and consumes capture work over Redis lists.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"LinkVault/internal/ports"
)

// NewRedisClient connects and verifies reachability with a ping.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisQueue implements ports.WorkQueue on a Redis list. LPUSH/BRPOP gives
// FIFO at-least-once delivery for a single consumer group.
type RedisQueue struct {
	client *redis.Client
	key    string
}

var _ ports.WorkQueue = (*RedisQueue)(nil)

// NewRedisQueue wires the client and list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "captures:pending"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish appends one capture message; the push result is reported
// explicitly, never fire-and-forget.
func (q *RedisQueue) Publish(ctx context.Context, msg ports.CaptureMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal capture message: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push capture message: %w", err)
	}
	return nil
}

// Next blocks up to timeout for the next capture message. A nil message
// with nil error means the wait timed out with an empty queue.
func (q *RedisQueue) Next(ctx context.Context, timeout time.Duration) (*ports.CaptureMessage, error) {
	values, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop capture message: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply of %d values", len(values))
	}

	var msg ports.CaptureMessage
	if err := json.Unmarshal([]byte(values[1]), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal capture message: %w", err)
	}
	return &msg, nil
}
