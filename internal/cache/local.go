package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bluele/gcache"
)

// LocalCache is an in-process LRU used when no Redis is configured. Values
// are kept as JSON so callers never share mutable state through the cache.
type LocalCache struct {
	lru gcache.Cache
}

// NewLocalCache builds an LRU of the given size whose entries expire after ttl.
func NewLocalCache(size int, ttl time.Duration) *LocalCache {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LocalCache{
		lru: gcache.New(size).
			LRU().
			Expiration(ttl).
			Build(),
	}
}

func (c *LocalCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	v, err := c.lru.Get(key)
	if err != nil {
		if errors.Is(err, gcache.KeyNotFoundError) {
			return false, nil
		}
		return false, err
	}
	data, ok := v.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *LocalCache) SetJSON(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.lru.Set(key, data)
}

func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Ensure concrete types implement the interface.
var (
	_ Cache = (*LocalCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
