package cache

import (
	"context"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/genomeai/platform/common/logger"
)

// Cache interface for key-value storage
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryCache is a bounded in-process cache backed by freecache
type MemoryCache struct {
	fc  *freecache.Cache
	log *logger.Logger
}

// NewMemoryCache creates a cache of roughly sizeMB megabytes.
// freecache enforces a 512KB floor.
func NewMemoryCache(sizeMB int, log *logger.Logger) *MemoryCache {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &MemoryCache{
		fc:  freecache.NewCache(sizeMB * 1024 * 1024),
		log: log,
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.fc.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value in cache with TTL. A zero ttl never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.fc.Set([]byte(key), value, int(ttl.Seconds()))
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.fc.Del([]byte(key))
	return nil
}

// Close clears the cache
func (c *MemoryCache) Close() error {
	c.fc.Clear()
	c.log.Info("memory cache closed")
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"entries":   c.fc.EntryCount(),
		"hit_rate":  c.fc.HitRate(),
		"evictions": c.fc.EvacuateCount(),
		"type":      "freecache",
	}
}
