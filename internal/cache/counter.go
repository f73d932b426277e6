package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CounterCache caches integer counts such as unread notification badges
type CounterCache interface {
	// Get returns the cached value and whether it was present
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCounterCache stores counters as plain Redis strings
type RedisCounterCache struct {
	client redis.Cmdable
}

// NewRedisCounterCache creates a cache on client
func NewRedisCounterCache(client redis.Cmdable) *RedisCounterCache {
	return &RedisCounterCache{client: client}
}

func (c *RedisCounterCache) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return v, true, nil
}

func (c *RedisCounterCache) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCounterCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// MemoryCounterCache is the in-process CounterCache
type MemoryCounterCache struct {
	mu     sync.Mutex
	values map[string]memoryCounter
	now    func() time.Time
}

type memoryCounter struct {
	value   int64
	expires time.Time
}

// NewMemoryCounterCache creates an empty cache
func NewMemoryCounterCache() *MemoryCounterCache {
	return &MemoryCounterCache{values: make(map[string]memoryCounter), now: time.Now}
}

func (c *MemoryCounterCache) Get(_ context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok || c.now().After(v.expires) {
		delete(c.values, key)
		return 0, false, nil
	}
	return v.value, true, nil
}

func (c *MemoryCounterCache) Set(_ context.Context, key string, value int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = memoryCounter{value: value, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCounterCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}
