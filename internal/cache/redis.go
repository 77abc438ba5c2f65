package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/kv"
	"github.com/planpilot/planpilot/internal/logger"
)

// RedisCache implements the Cache interface on the shared counter store.
type RedisCache struct {
	store  kv.Store
	log    *logger.Logger
	config *config.Configuration
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(store kv.Store, log *logger.Logger, config *config.Configuration) *RedisCache {
	return &RedisCache{
		store:  store,
		log:    log,
		config: config,
	}
}

// Get retrieves a value from the cache
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.config.Cache.Enabled {
		return nil, false
	}

	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Errorw("cache GET failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	return value, true
}

// Set adds a value to the cache with the specified expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.config.Cache.Enabled {
		return
	}

	if expiration == 0 {
		expiration = c.defaultTTL()
	}

	// Convert value to string if it's not already
	var strValue string
	switch v := value.(type) {
	case string:
		strValue = v
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			c.log.Errorw("failed to marshal cache value", "key", key, "error", err)
			return
		}
		strValue = string(jsonBytes)
	}

	if err := c.store.Set(ctx, key, strValue, expiration); err != nil {
		c.log.Errorw("cache SET failed", "key", key, "error", err)
	}
}

// Delete removes a key from the cache
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key); err != nil {
		c.log.Errorw("cache DELETE failed", "key", key, "error", err)
	}
}

// DeleteByPrefix removes all keys with the given prefix
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	if err := c.store.DelByPrefix(ctx, prefix); err != nil {
		c.log.Errorw("cache prefix DELETE failed", "prefix", prefix, "error", err)
	}
}

func (c *RedisCache) defaultTTL() time.Duration {
	if c.config.Cache.DefaultTTL > 0 {
		return c.config.Cache.DefaultTTL
	}
	return ExpiryDefaultRedis
}
