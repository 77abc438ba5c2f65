package cache

import (
	"context"
	"strings"
	"time"

	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/logger"
	gocache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements the Cache interface using go-cache. Suitable for
// single-node deployments and tests; it stores live objects rather than the
// JSON wire form.
type InMemoryCache struct {
	cache  *gocache.Cache
	log    *logger.Logger
	config *config.Configuration
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache(config *config.Configuration, log *logger.Logger) *InMemoryCache {
	defaultTTL := config.Cache.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = ExpiryDefaultInMemory
	}

	return &InMemoryCache{
		cache:  gocache.New(defaultTTL, 10*time.Minute),
		log:    log,
		config: config,
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.config.Cache.Enabled {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.config.Cache.Enabled {
		return
	}
	if expiration == 0 {
		expiration = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) DeleteByPrefix(ctx context.Context, prefix string) {
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
}
