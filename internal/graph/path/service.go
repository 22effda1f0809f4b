// Copyright (c) 2026 Costar. All rights reserved.

package path

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/moviegraph/costar/internal/graph/pair"
	"github.com/moviegraph/costar/internal/platform/apperr"
	"github.com/moviegraph/costar/internal/platform/validate"
)

// cacheWriteTimeout bounds the detached cache write after a fresh compute.
const cacheWriteTimeout = 2 * time.Second

// AdjacencyReader supplies the neighbor sets the search expands over. An
// edge exists between any two people with a pair row, regardless of type
// or count.
type AdjacencyReader interface {
	Neighbors(ctx context.Context, personIDs []int64) (map[int64][]int64, error)
}

// PersonChecker verifies that queried people exist in the catalog.
type PersonChecker interface {
	PersonExists(ctx context.Context, personID int64) (bool, error)
}

// # Service Layer

// Service answers shortest-path queries with a breadth-first search over
// the pair adjacency, fronted by the TTL cache.
type Service struct {
	adjacency AdjacencyReader
	people    PersonChecker
	cache     Cache
	flights   singleflight.Group
	depth     int
	logger    *slog.Logger
}

// NewService constructs a path [Service]. defaultDepth is the hop bound
// applied when the caller supplies none.
func NewService(adjacency AdjacencyReader, people PersonChecker, cache Cache, defaultDepth int, logger *slog.Logger) *Service {
	if defaultDepth < 1 {
		defaultDepth = 1
	}
	return &Service{
		adjacency: adjacency,
		people:    people,
		cache:     cache,
		depth:     defaultDepth,
		logger:    logger,
	}
}

// DefaultDepth returns the configured default hop bound.
func (service *Service) DefaultDepth() int {
	return service.depth
}

/*
Find returns a shortest collaboration path between two people, bounded by
maxDepth hops.

Description: Concurrent queries for the same pair and bound share one
computation. A cached shortest path longer than maxDepth answers the query
as "no path within the bound" without recomputation, since no shorter path
can exist.

Parameters:
  - ctx: context.Context
  - from, to: int64 (Person IDs, any order)
  - maxDepth: int (Must be positive)

Returns:
  - *Result: Path, trivial self-path, or a no-path outcome
  - error: Validation errors, NotFound for unknown people
*/
func (service *Service) Find(ctx context.Context, from, to int64, maxDepth int) (*Result, error) {
	validator := &validate.Validator{}
	validator.Positive("from", from)
	validator.Positive("to", to)
	validator.Positive("max_depth", int64(maxDepth))
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// 1. Unknown people are lookup failures, never an empty path.
	for _, personID := range []int64{from, to} {
		exists, err := service.people.PersonExists(ctx, personID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound("Person " + strconv.FormatInt(personID, 10))
		}
	}

	// 2. A person is trivially connected to themselves.
	if from == to {
		return &Result{Source: from, Target: to, Found: true, Path: []int64{from}, Length: 0}, nil
	}

	low, high, err := pair.Normalize(from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// 3. Serve from the cache when possible.
	entry, err := service.cache.Get(ctx, low, high)
	if err != nil {
		service.logger.Warn("path_cache_read_failed",
			slog.Int64("person_low_id", low),
			slog.Int64("person_high_id", high),
			slog.Any("error", err),
		)
	}
	if entry != nil {
		return service.fromCache(from, to, maxDepth, entry), nil
	}

	// 4. Compute once per pair and bound, however many callers are waiting.
	flightKey := strconv.FormatInt(low, 10) + ":" + strconv.FormatInt(high, 10) + ":" + strconv.Itoa(maxDepth)
	value, err, _ := service.flights.Do(flightKey, func() (any, error) {
		return service.compute(ctx, low, high, maxDepth)
	})
	if err != nil {
		return nil, err
	}

	return orient(value.(*Result), from, to), nil
}

// fromCache answers a query from a stored canonical entry.
func (service *Service) fromCache(from, to int64, maxDepth int, entry *CacheEntry) *Result {
	result := &Result{Source: from, Target: to, Cached: true}

	// The stored path is the shortest that exists; when it exceeds the
	// bound, nothing within the bound connects the pair.
	if entry.Length > maxDepth {
		return result
	}

	path := append([]int64(nil), entry.Path...)
	if len(path) > 0 && path[0] != from {
		slices.Reverse(path)
	}

	result.Found = true
	result.Path = path
	result.Length = entry.Length
	return result
}

// compute runs the level-by-level search between a canonical pair.
//
// The frontier is expanded through one batched adjacency query per level,
// not one query per node. Found paths are written to the cache without
// blocking the caller.
func (service *Service) compute(ctx context.Context, low, high int64, maxDepth int) (*Result, error) {
	result := &Result{Source: low, Target: high}

	visited := map[int64]bool{low: true}
	parent := map[int64]int64{}
	frontier := []int64{low}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		adjacency, err := service.adjacency.Neighbors(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []int64
		for _, node := range frontier {
			for _, neighbor := range adjacency[node] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				parent[neighbor] = node

				if neighbor == high {
					result.Found = true
					result.Path = reconstruct(parent, low, high)
					result.Length = len(result.Path) - 1
					service.storeAsync(ctx, low, high, result)
					return result, nil
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return result, nil
}

// storeAsync persists a found path without blocking the caller. A failed
// write only costs a future recomputation.
func (service *Service) storeAsync(ctx context.Context, low, high int64, result *Result) {
	entry := &CacheEntry{
		Path:       append([]int64(nil), result.Path...),
		Length:     result.Length,
		ComputedAt: time.Now().UTC(),
	}

	background := context.WithoutCancel(ctx)
	go func() {
		writeCtx, cancel := context.WithTimeout(background, cacheWriteTimeout)
		defer cancel()

		if err := service.cache.Set(writeCtx, low, high, entry); err != nil {
			service.logger.Warn("path_cache_write_failed",
				slog.Int64("person_low_id", low),
				slog.Int64("person_high_id", high),
				slog.Any("error", err),
			)
		}
	}()
}

// orient maps a canonical result onto the caller's direction.
func orient(canonical *Result, from, to int64) *Result {
	result := &Result{Source: from, Target: to, Found: canonical.Found, Length: canonical.Length}
	if !canonical.Found {
		return result
	}

	path := append([]int64(nil), canonical.Path...)
	if path[0] != from {
		slices.Reverse(path)
	}
	result.Path = path
	return result
}

// reconstruct walks the parent links back from the target.
func reconstruct(parent map[int64]int64, source, target int64) []int64 {
	path := []int64{target}
	for node := target; node != source; {
		node = parent[node]
		path = append(path, node)
	}
	slices.Reverse(path)
	return path
}
