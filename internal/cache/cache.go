// Package cache provides the request cache for server rendering: keyed
// get-or-fetch with per-entry expiry, stale-on-error degradation, and
// whole-cache invalidation.
//
// Caching is only active in server-render mode. In interactive mode the
// cache is constructed disabled: every lookup invokes the fetch function and
// nothing is stored, so client views always reflect the latest state.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quillpress/prerender/internal/logger"
	"github.com/quillpress/prerender/internal/metrics"
)

// Entry is one cached value with its expiry envelope. Entries are immutable
// once created; a write replaces, never mutates, the prior entry for a key.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Fresh reports whether the entry is still within its TTL.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store is the backing store for cache entries. Get returns (nil, nil) on a
// clean miss. Implementations must be safe for concurrent use; one cache
// instance serves all in-flight requests within the process.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Clear(ctx context.Context) error
}

// Cache wraps a Store with get-or-fetch semantics. Concurrent callers for
// the same cold key share a single in-flight fetch.
type Cache struct {
	store   Store
	enabled bool
	clock   func() time.Time
	group   singleflight.Group
	logger  logger.Logger
	metrics *metrics.Metrics
}

// Options configures a Cache.
type Options struct {
	// Enabled selects server-render mode. When false every fetch goes
	// through and nothing is stored.
	Enabled bool

	// Clock overrides time.Now, so tests control expiry deterministically.
	Clock func() time.Time

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// New creates a Cache over the given store.
func New(store Store, opts Options) *Cache {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewUnregistered()
	}
	return &Cache{
		store:   store,
		enabled: opts.Enabled,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Enabled reports whether caching is active.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Clear drops every entry. Invalidation is whole-cache only; no key is ever
// partially invalidated.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.store.Clear(ctx)
}

// Key builds a cache key from an operation name and its parameters.
func Key(operation string, params ...string) string {
	if len(params) == 0 {
		return operation
	}
	return operation + ":" + strings.Join(params, ":")
}

// GetOrFetch returns the cached value for key when fresh, otherwise invokes
// fetch. A successful fetch is stored with expiry now+ttl. When fetch fails
// and any entry exists, fresh or stale, the cached value is served instead
// of the error; the error only propagates on a cold key.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var result T

	if !c.enabled {
		return fetch(ctx)
	}

	raw, err := c.getOrFetchRaw(ctx, key, ttl, func(fetchCtx context.Context) (json.RawMessage, error) {
		value, fetchErr := fetch(fetchCtx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return json.Marshal(value)
	})
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("decode cached value for %q: %w", key, err)
	}
	return result, nil
}

// getOrFetchRaw holds the actual lookup logic, coalesced per key so a burst
// of cold callers issues one upstream fetch.
func (c *Cache) getOrFetchRaw(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	value, err, _ := c.group.Do(key, func() (any, error) {
		return c.lookup(ctx, key, ttl, fetch)
	})
	if err != nil {
		return nil, err
	}
	return value.(json.RawMessage), nil
}

func (c *Cache) lookup(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken store is treated as a miss, not a failure.
		c.logger.Warn("Cache store read failed",
			logger.String("cache_key", key),
			logger.Error(err),
		)
		c.metrics.CacheLookups.WithLabelValues(metrics.OutcomeError).Inc()
		entry = nil
	}

	now := c.clock()
	if entry != nil && entry.Fresh(now) {
		c.metrics.CacheLookups.WithLabelValues(metrics.OutcomeHit).Inc()
		return entry.Value, nil
	}

	value, fetchErr := fetch(ctx)
	if fetchErr != nil {
		if entry != nil {
			// Degrade to the stale value rather than failing the page.
			c.logger.Warn("Fetch failed, serving stale cache entry",
				logger.String("cache_key", key),
				logger.Time("expired_at", entry.ExpiresAt),
				logger.Error(fetchErr),
			)
			c.metrics.CacheLookups.WithLabelValues(metrics.OutcomeStale).Inc()
			return entry.Value, nil
		}
		return nil, fetchErr
	}

	c.metrics.CacheLookups.WithLabelValues(metrics.OutcomeMiss).Inc()

	stored := &Entry{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if setErr := c.store.Set(ctx, key, stored); setErr != nil {
		// The fetched value is still good; a write failure only costs the
		// next caller a refetch.
		c.logger.Warn("Cache store write failed",
			logger.String("cache_key", key),
			logger.Error(setErr),
		)
	}

	return value, nil
}
