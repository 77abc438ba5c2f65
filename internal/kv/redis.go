package kv

import (
	"context"
	"time"

	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/logger"
	redisClient "github.com/planpilot/planpilot/internal/redis"
	"github.com/redis/go-redis/v9"
)

// ScanCount determines how many keys to scan at once when using SCAN
const ScanCount = 100

// RedisStore implements Store on top of Redis.
type RedisStore struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisStore(client *redisClient.Client, log *logger.Logger) *RedisStore {
	return &RedisStore{
		client: client.GetClient(),
		log:    log,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, s.storeErr(err, "GET", key)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return s.storeErr(err, "SET", key)
	}
	return nil
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, s.storeErr(err, "SETNX", key)
	}
	return ok, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, s.storeErr(err, "INCR", key)
	}
	return n, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return s.storeErr(err, "DEL", keys[0])
	}
	return nil
}

func (s *RedisStore) DelByPrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", ScanCount).Iterator()

	var keysToDelete []string
	for iter.Next(ctx) {
		keysToDelete = append(keysToDelete, iter.Val())

		// Delete in batches of 1000 keys
		if len(keysToDelete) >= 1000 {
			if err := s.client.Del(ctx, keysToDelete...).Err(); err != nil {
				return s.storeErr(err, "DEL", prefix)
			}
			keysToDelete = keysToDelete[:0]
		}
	}

	if err := iter.Err(); err != nil {
		return s.storeErr(err, "SCAN", prefix)
	}

	if len(keysToDelete) > 0 {
		if err := s.client.Del(ctx, keysToDelete...).Err(); err != nil {
			return s.storeErr(err, "DEL", prefix)
		}
	}
	return nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, s.storeErr(err, "TTL", key)
	}
	// go-redis returns -1 for no expiry and -2 for missing key
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (s *RedisStore) storeErr(err error, op, key string) error {
	s.log.Errorw("redis command failed", "op", op, "key", key, "error", err)
	return ierr.WithError(err).
		WithHintf("Redis %s failed", op).
		Mark(ierr.ErrStoreUnavailable)
}
