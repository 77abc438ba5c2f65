package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// BuildKey derives a cache key from an operation name and its identifying
// parts, e.g. BuildKey("plans", "list") -> "plans:list". Callers own key
// derivation: keys must be stable and collision-free for a given call
// signature, and callers must not memoize operations with side effects or
// non-deterministic output.
func BuildKey(operation string, parts ...string) string {
	if len(parts) == 0 {
		return operation
	}
	return operation + ":" + strings.Join(parts, ":")
}

// UnmarshalCacheValue attempts to convert a cache value to the specified type.
// It handles both in-memory cache (which stores actual objects) and Redis
// cache (which stores JSON strings). Returns the typed value and true if
// successful, nil and false otherwise.
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}

	// Try direct type assertion first (for in-memory cache)
	if typed, ok := value.(*T); ok {
		return typed, true
	}

	// Try unmarshalling from JSON string (for Redis cache)
	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}

	return nil, false
}

// GetOrSet memoizes compute under key: on a hit the computation is skipped
// entirely, on a miss the result is stored with the given ttl (zero uses the
// cache default). Errors from compute are returned without being cached.
func GetOrSet[T any](ctx context.Context, c Cache, key string, ttl time.Duration, compute func(ctx context.Context) (*T, error)) (*T, error) {
	if value, found := c.Get(ctx, key); found {
		if typed, ok := UnmarshalCacheValue[T](value); ok {
			return typed, nil
		}
		// Undecodable entry, drop it and recompute.
		c.Delete(ctx, key)
	}

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.Set(ctx, key, result, ttl)
	return result, nil
}
