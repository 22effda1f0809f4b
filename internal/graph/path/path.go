// Copyright (c) 2026 Costar. All rights reserved.

/*
Package path answers six-degrees queries over the collaboration graph.

It runs a bounded breadth-first search across the pairwise adjacency and
caches found paths in Redis under the canonical pair key. The cache is an
optimization only: a read or write failure degrades to a recomputation,
never to a query error.
*/
package path

import "time"

// Result is the outcome of one shortest-path query.
//
// Found distinguishes "no path within the depth bound" from failures such
// as an unknown person. The absence of a path is a valid answer, not an
// error.
type Result struct {
	Source int64   `json:"source_id"`
	Target int64   `json:"target_id"`
	Found  bool    `json:"found"`
	Path   []int64 `json:"path,omitempty"`
	Length int     `json:"length"`
	Cached bool    `json:"cached"`
}

// CacheEntry is a stored shortest path, always oriented low to high.
//
// Only found paths are stored. Expiry is TTL-only: edge changes do not
// invalidate entries, the graph is assumed to change slowly relative to
// the TTL.
type CacheEntry struct {
	Path       []int64   `json:"path"`
	Length     int       `json:"length"`
	ComputedAt time.Time `json:"computed_at"`
}
