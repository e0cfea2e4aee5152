package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup filters redelivered webhook batches. The host retries pushes it
// believes undelivered, so the same delivery id can arrive more than once;
// a batch must be applied exactly once.
type Dedup interface {
	// FirstDelivery reports whether this delivery id has not been seen
	// before. An empty id is always treated as first delivery.
	FirstDelivery(ctx context.Context, deliveryID string) (bool, error)
}

const dedupKeyPrefix = "webhook:delivery:"

// RedisDedup is the Redis-backed delivery filter.
type RedisDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedup creates a dedup store on an existing Redis client.
func NewRedisDedup(client *redis.Client, ttl time.Duration) *RedisDedup {
	return &RedisDedup{client: client, ttl: ttl}
}

// FirstDelivery marks the delivery id seen and reports whether it was new.
func (d *RedisDedup) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return true, nil
	}
	return d.client.SetNX(ctx, dedupKeyPrefix+deliveryID, 1, d.ttl).Result()
}

// NoopDedup applies every delivery. Used when no Redis URL is configured;
// the marker rebuild is idempotent, so redelivery then costs a redundant
// rebuild rather than corruption.
type NoopDedup struct{}

// FirstDelivery always reports true.
func (NoopDedup) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	return true, nil
}
