// Copyright (c) 2026 Costar. All rights reserved.

/*
Package trend detects collaboration pairs that are heating up.

A scheduled refresh compares each pair's recent activity window against its
historical baseline and materializes the full ranking as one snapshot set.
Readers only ever see a complete snapshot; each refresh replaces the prior
set atomically.
*/
package trend

import "time"

// Snapshot is one pair's standing in the latest trend ranking.
type Snapshot struct {
	PersonLow     int64     `json:"person_low_id"`
	PersonHigh    int64     `json:"person_high_id"`
	Score         float64   `json:"score"`
	RecentCount   int       `json:"recent_count"`
	BaselineCount int       `json:"baseline_count"`
	LastYear      int       `json:"last_year"`
	ComputedAt    time.Time `json:"computed_at"`
}

// Activity is the per-pair raw material for one score: the release years
// falling inside the window and the amount of history outside it.
//
// Pairs with no release year inside the window never appear; a pair that
// stopped collaborating drops out of the ranking entirely rather than
// lingering with a stale score.
type Activity struct {
	PersonLow     int64
	PersonHigh    int64
	RecentYears   []int
	BaselineCount int
	LastYear      int
}
