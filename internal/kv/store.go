package kv

import (
	"context"
	"time"
)

// Store is the shared counter store the resilience components coordinate
// through. All cross-replica invariants (rate windows, breaker state) rest on
// the atomicity of Incr and SetNX plus server-side TTL expiry; no in-process
// memory is authoritative.
//
// A ttl of zero means the key does not expire.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key with an optional expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes key only if it does not exist. Returns true if the write
	// happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// DelByPrefix removes all keys with the given prefix. Intended for
	// low-cardinality invalidation only.
	DelByPrefix(ctx context.Context, prefix string) error

	// TTL returns the remaining time to live of key. Returns zero duration
	// when the key has no expiry or does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
