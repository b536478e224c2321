package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces render-cache keys in a shared Redis database.
	keyPrefix = "render:cache:"

	// staleRetention is how long an entry outlives its logical expiry in
	// Redis. Within this window stale-on-error can still recover it.
	staleRetention = time.Hour

	scanBatchSize = 100
)

// RedisStore backs the request cache with Redis so cache state survives
// process restarts and is shared across replicas. The physical Redis TTL is
// the logical TTL plus a stale-retention window; logical freshness is judged
// from the entry envelope, not from Redis expiry.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store over an established Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(key string) string {
	return keyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return &entry, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}

	retention := time.Until(entry.ExpiresAt) + staleRetention
	if retention <= 0 {
		retention = staleRetention
	}

	if err := s.client.Set(ctx, s.key(key), data, retention).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Clear removes every render-cache key. SCAN keeps this safe on a Redis
// database shared with other services; FLUSHDB would take them down too.
func (s *RedisStore) Clear(ctx context.Context) error {
	pattern := keyPrefix + "*"
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
