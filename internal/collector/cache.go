package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/research"
)

// Cache stores search results keyed by collector query so repeated
// sub-questions within a request window do not re-hit the upstream APIs.
// Implementations are best-effort: a broken cache degrades to a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]research.Source, bool)
	Set(ctx context.Context, key string, sources []research.Source)
}

// NewCache builds the configured cache backend. A disabled cache returns nil,
// which collectors treat as cache-off.
func NewCache(cfg config.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	switch cfg.Backend {
	case "redis":
		return newRedisCache(cfg)
	default:
		return newMemoryCache(cfg.TTL)
	}
}

// memoryCache is a process-local TTL map. Entries are evicted lazily on read.
type memoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	sources   []research.Source
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &memoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]research.Source, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	out := make([]research.Source, len(entry.sources))
	copy(out, entry.sources)
	return out, true
}

func (c *memoryCache) Set(ctx context.Context, key string, sources []research.Source) {
	stored := make([]research.Source, len(sources))
	copy(stored, sources)
	c.mu.Lock()
	c.entries[key] = memoryEntry{sources: stored, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// redisCache shares results across instances through Redis with a TTL.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisCache(cfg config.CacheConfig) *redisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &redisCache{client: rdb, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]research.Source, bool) {
	val, err := c.client.Get(ctx, "search:"+key).Result()
	if err != nil {
		return nil, false
	}
	var sources []research.Source
	if err := json.Unmarshal([]byte(val), &sources); err != nil {
		return nil, false
	}
	return sources, true
}

func (c *redisCache) Set(ctx context.Context, key string, sources []research.Source) {
	data, err := json.Marshal(sources)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, "search:"+key, data, c.ttl).Err()
}
