package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpress/prerender/internal/cache"
)

// fakeClock lets tests move time deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(clock *fakeClock) *cache.Cache {
	return cache.New(cache.NewMemoryStore(), cache.Options{
		Enabled: true,
		Clock:   clock.Now,
	})
}

func TestGetOrFetchFreshHit(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	got, err := cache.GetOrFetch(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "value", got)
	assert.Equal(t, 1, calls)

	// A fresh entry must be served without invoking fetch again.
	got, err = cache.GetOrFetch(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "value", got)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetchExpiryRefetches(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	got, err := cache.GetOrFetch(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	clock.Advance(2 * time.Minute)

	got, err = cache.GetOrFetch(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchStaleOnError(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	ctx := context.Background()
	fetchErr := errors.New("backend down")

	// Seed an entry.
	_, err := cache.GetOrFetch(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
		return "seeded", nil
	})
	require.NoError(t, err)

	failing := func(context.Context) (string, error) {
		return "", fetchErr
	}

	// A fresh entry is served without consulting fetch, so force expiry
	// first: the stale value must still be served when fetch fails.
	clock.Advance(5 * time.Minute)
	got, err := cache.GetOrFetch(ctx, c, "k", time.Minute, failing)
	require.NoError(t, err)
	assert.Equal(t, "seeded", got)

	// With no entry at all the error propagates.
	_, err = cache.GetOrFetch(ctx, c, "cold-key", time.Minute, failing)
	require.ErrorIs(t, err, fetchErr)
}

func TestGetOrFetchDisabledAlwaysFetches(t *testing.T) {
	c := cache.New(cache.NewMemoryStore(), cache.Options{Enabled: false})
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "latest", nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetOrFetch(ctx, c, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "latest", got)
	}
	assert.Equal(t, 3, calls)

	// Errors propagate directly in disabled mode, no stale fallback.
	wantErr := errors.New("nope")
	_, err := cache.GetOrFetch(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
		return "", wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestClearDropsEverything(t *testing.T) {
	clock := newFakeClock()
	store := cache.NewMemoryStore()
	c := cache.New(store, cache.Options{Enabled: true, Clock: clock.Now})
	ctx := context.Background()

	_, err := cache.GetOrFetch(ctx, c, "a", time.Minute, func(context.Context) (string, error) { return "1", nil })
	require.NoError(t, err)
	_, err = cache.GetOrFetch(ctx, c, "b", time.Minute, func(context.Context) (string, error) { return "2", nil })
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, store.Len())

	// After a clear even the stale fallback is gone.
	wantErr := errors.New("down")
	_, err = cache.GetOrFetch(ctx, c, "a", time.Minute, func(context.Context) (string, error) { return "", wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestConcurrentColdCallersShareOneFetch(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return "shared", nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]string, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrFetch(ctx, c, "k", time.Minute, fetch)
		}(i)
	}

	// Let every waiter join the in-flight fetch, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "cold callers for the same key must share one fetch")
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "primary:tide", cache.Key("primary", "tide"))
	assert.Equal(t, "related:p1:poem", cache.Key("related", "p1", "poem"))
	assert.Equal(t, "solo", cache.Key("solo"))
}
