package cache

import (
	"context"
	"time"

	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/kv"
	"github.com/planpilot/planpilot/internal/logger"
)

// Cache defines the interface for cache implementations. Values are stored in
// their JSON wire form; a value that fails to deserialize is treated as a
// miss, never as an error.
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value to the cache with an expiration. A zero expiration
	// uses the configured default.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)
}

// CacheType represents the type of cache to use
type CacheType string

const (
	// CacheTypeInMemory represents an in-memory cache
	CacheTypeInMemory CacheType = "inmemory"

	// CacheTypeRedis represents a Redis-backed cache
	CacheTypeRedis CacheType = "redis"
)

// Initialize builds the cache implementation selected by configuration.
func Initialize(cfg *config.Configuration, store kv.Store, log *logger.Logger) Cache {
	log.Infow("initializing cache", "type", cfg.Cache.Type)

	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		return NewRedisCache(store, log, cfg)
	case CacheTypeInMemory:
		fallthrough
	default:
		return NewInMemoryCache(cfg, log)
	}
}
