// Copyright (c) 2026 Costar. All rights reserved.

package path_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviegraph/costar/internal/graph/path"
	"github.com/moviegraph/costar/internal/platform/apperr"
)

// # Fakes

// fakeAdjacency serves a fixed undirected graph and counts expansions, so
// tests can tell a cache hit from a recomputation.
type fakeAdjacency struct {
	edges map[int64][]int64
	calls atomic.Int64
}

func newFakeAdjacency(pairs ...[2]int64) *fakeAdjacency {
	adjacency := &fakeAdjacency{edges: map[int64][]int64{}}
	for _, edge := range pairs {
		adjacency.edges[edge[0]] = append(adjacency.edges[edge[0]], edge[1])
		adjacency.edges[edge[1]] = append(adjacency.edges[edge[1]], edge[0])
	}
	return adjacency
}

func (adjacency *fakeAdjacency) Neighbors(_ context.Context, personIDs []int64) (map[int64][]int64, error) {
	adjacency.calls.Add(1)

	result := map[int64][]int64{}
	for _, personID := range personIDs {
		if neighbors, ok := adjacency.edges[personID]; ok {
			result[personID] = neighbors
		}
	}
	return result, nil
}

// fakePeople knows a fixed set of person IDs.
type fakePeople struct {
	known map[int64]bool
}

func newFakePeople(ids ...int64) *fakePeople {
	people := &fakePeople{known: map[int64]bool{}}
	for _, id := range ids {
		people.known[id] = true
	}
	return people
}

func (people *fakePeople) PersonExists(_ context.Context, personID int64) (bool, error) {
	return people.known[personID], nil
}

// fakeCache is an in-memory path cache with switchable failures.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*path.CacheEntry
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*path.CacheEntry{}}
}

func cacheKey(low, high int64) string {
	return strconv.FormatInt(low, 10) + ":" + strconv.FormatInt(high, 10)
}

func (cache *fakeCache) Get(_ context.Context, low, high int64) (*path.CacheEntry, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.getErr != nil {
		return nil, cache.getErr
	}
	return cache.entries[cacheKey(low, high)], nil
}

func (cache *fakeCache) Set(_ context.Context, low, high int64, entry *path.CacheEntry) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.setErr != nil {
		return cache.setErr
	}
	cache.entries[cacheKey(low, high)] = entry
	return nil
}

func (cache *fakeCache) size() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.entries)
}

func (cache *fakeCache) expire(low, high int64) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, cacheKey(low, high))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # Search Semantics

/*
TestService_Find_KnownPath checks the exact shortest path on a hand-built
six-node graph.
*/
func TestService_Find_KnownPath(t *testing.T) {
	// 1-2-3-4 chain plus a 1-5-6 dead end.
	adjacency := newFakeAdjacency([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 4}, [2]int64{1, 5}, [2]int64{5, 6})
	service := path.NewService(adjacency, newFakePeople(1, 2, 3, 4, 5, 6), newFakeCache(), 6, discardLogger())

	result, err := service.Find(context.Background(), 1, 4, 6)
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.False(t, result.Cached)
	assert.Equal(t, 3, result.Length)
	assert.Equal(t, []int64{1, 2, 3, 4}, result.Path)
}

/*
TestService_Find_NoPath covers disconnected components and an insufficient
depth bound. Both are successful no-path outcomes, not errors.
*/
func TestService_Find_NoPath(t *testing.T) {
	t.Run("disconnected_components", func(t *testing.T) {
		adjacency := newFakeAdjacency([2]int64{1, 2}, [2]int64{3, 4})
		service := path.NewService(adjacency, newFakePeople(1, 2, 3, 4), newFakeCache(), 6, discardLogger())

		result, err := service.Find(context.Background(), 1, 3, 6)
		require.NoError(t, err)
		assert.False(t, result.Found)
		assert.Empty(t, result.Path)
	})

	t.Run("depth_bound_too_small", func(t *testing.T) {
		adjacency := newFakeAdjacency([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 4}, [2]int64{4, 5})
		service := path.NewService(adjacency, newFakePeople(1, 2, 3, 4, 5), newFakeCache(), 6, discardLogger())

		short, err := service.Find(context.Background(), 1, 5, 2)
		require.NoError(t, err)
		assert.False(t, short.Found)

		full, err := service.Find(context.Background(), 1, 5, 4)
		require.NoError(t, err)
		assert.True(t, full.Found)
		assert.Equal(t, 4, full.Length)
	})
}

/*
TestService_Find_TrivialAndInvalid covers the self-path, unknown people,
and rejected bounds.
*/
func TestService_Find_TrivialAndInvalid(t *testing.T) {
	adjacency := newFakeAdjacency([2]int64{1, 2})
	service := path.NewService(adjacency, newFakePeople(1, 2), newFakeCache(), 6, discardLogger())
	ctx := context.Background()

	// Same person on both ends: zero-length success.
	trivial, err := service.Find(ctx, 1, 1, 6)
	require.NoError(t, err)
	assert.True(t, trivial.Found)
	assert.Equal(t, []int64{1}, trivial.Path)
	assert.Zero(t, trivial.Length)

	// Unknown person: a lookup failure, never an empty path.
	_, err = service.Find(ctx, 1, 99, 6)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	// Non-positive bounds are rejected, not coerced.
	_, err = service.Find(ctx, 1, 2, 0)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	_, err = service.Find(ctx, -1, 2, 6)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

// # Cache Semantics

/*
TestService_Find_CacheRoundTrip verifies that a computed path is served from
the cache until expiry, then recomputed.
*/
func TestService_Find_CacheRoundTrip(t *testing.T) {
	adjacency := newFakeAdjacency([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 4})
	cache := newFakeCache()
	service := path.NewService(adjacency, newFakePeople(1, 2, 3, 4), cache, 6, discardLogger())
	ctx := context.Background()

	// First query computes and writes the cache in the background.
	first, err := service.Find(ctx, 1, 4, 6)
	require.NoError(t, err)
	assert.True(t, first.Found)
	assert.Positive(t, adjacency.calls.Load())
	require.Eventually(t, func() bool { return cache.size() == 1 }, time.Second, 5*time.Millisecond)

	// Second query must not touch the adjacency at all.
	adjacency.calls.Store(0)
	second, err := service.Find(ctx, 1, 4, 6)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, first.Length, second.Length)
	assert.Zero(t, adjacency.calls.Load())

	// The reverse direction hits the same entry, reversed.
	reversed, err := service.Find(ctx, 4, 1, 6)
	require.NoError(t, err)
	assert.True(t, reversed.Cached)
	assert.Equal(t, []int64{4, 3, 2, 1}, reversed.Path)
	assert.Zero(t, adjacency.calls.Load())

	// A cached shortest path longer than the bound answers "no path"
	// without recomputation.
	bounded, err := service.Find(ctx, 1, 4, 2)
	require.NoError(t, err)
	assert.False(t, bounded.Found)
	assert.True(t, bounded.Cached)
	assert.Zero(t, adjacency.calls.Load())

	// After expiry the next query recomputes.
	cache.expire(1, 4)
	recomputed, err := service.Find(ctx, 1, 4, 6)
	require.NoError(t, err)
	assert.True(t, recomputed.Found)
	assert.False(t, recomputed.Cached)
	assert.Positive(t, adjacency.calls.Load())
}

/*
TestService_Find_CacheFailuresDegrade keeps queries working when the cache
is down in both directions.
*/
func TestService_Find_CacheFailuresDegrade(t *testing.T) {
	adjacency := newFakeAdjacency([2]int64{1, 2}, [2]int64{2, 3})
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	service := path.NewService(adjacency, newFakePeople(1, 2, 3), cache, 6, discardLogger())

	result, err := service.Find(context.Background(), 1, 3, 6)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, []int64{1, 2, 3}, result.Path)
	assert.False(t, result.Cached)
}
