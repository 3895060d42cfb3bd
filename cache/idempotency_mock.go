package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryIdempotencyCache is a sync.Mutex-guarded fake of IdempotencyCache
// for tests that don't want a redis dependency. It ignores ttl.
type InMemoryIdempotencyCache struct {
	mu   sync.Mutex
	data map[string]int64
}

func NewInMemoryIdempotencyCache() *InMemoryIdempotencyCache {
	return &InMemoryIdempotencyCache{data: make(map[string]int64)}
}

func (c *InMemoryIdempotencyCache) PutOrderID(ctx context.Context, idempotencyKey string, orderID int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[idempotencyKey] = orderID
	return nil
}

func (c *InMemoryIdempotencyCache) GetOrderID(ctx context.Context, idempotencyKey string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	orderID, ok := c.data[idempotencyKey]
	return orderID, ok, nil
}

func (c *InMemoryIdempotencyCache) Ping(ctx context.Context) error {
	return nil
}
