package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const idempotencyTTL = 24 * time.Hour

// Idempotency remembers which orders the worker has already handled.
type Idempotency interface {
	Seen(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, orderID uuid.UUID) error
}

type RedisIdempotency struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotency(client *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{client: client, ttl: idempotencyTTL}
}

func processedKey(orderID uuid.UUID) string {
	return "order_processed:" + orderID.String()
}

func (r *RedisIdempotency) Seen(ctx context.Context, orderID uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, processedKey(orderID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisIdempotency) MarkProcessed(ctx context.Context, orderID uuid.UUID) error {
	return r.client.Set(ctx, processedKey(orderID), "1", r.ttl).Err()
}
