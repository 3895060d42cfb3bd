// Package cache is a thin redis-backed layer in front of the idempotency
// key uniqueness the store already enforces. It exists to turn a retried
// CreateOrder into a single GET most of the time, instead of a round trip
// to Postgres that ends in a unique-violation anyway.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type IdempotencyCache interface {
	// PutOrderID remembers that idempotencyKey resolved to orderID, valid
	// for ttl.
	PutOrderID(ctx context.Context, idempotencyKey string, orderID int64, ttl time.Duration) error
	// GetOrderID returns the remembered order id, or false if the key is
	// unknown — callers must still fall back to the store, since the cache
	// is an accelerator, not the source of truth.
	GetOrderID(ctx context.Context, idempotencyKey string) (int64, bool, error)
	// Ping backs the readiness probe.
	Ping(ctx context.Context) error
}

type redisIdempotencyCache struct {
	client *redis.Client
}

func NewRedisIdempotencyCache(addr string) IdempotencyCache {
	return &redisIdempotencyCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *redisIdempotencyCache) key(idempotencyKey string) string {
	return fmt.Sprintf("ordersaga:idempotency:%s", idempotencyKey)
}

func (c *redisIdempotencyCache) PutOrderID(ctx context.Context, idempotencyKey string, orderID int64, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(idempotencyKey), orderID, ttl).Err()
}

func (c *redisIdempotencyCache) GetOrderID(ctx context.Context, idempotencyKey string) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.key(idempotencyKey)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

func (c *redisIdempotencyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
