// Copyright (c) 2026 Costar. All rights reserved.

package trend

import "context"

// Repository is the persistence boundary for trend snapshots.
type Repository interface {
	/*
		RecentActivity returns, for every pair with at least one detail row
		released in or after sinceYear, the raw material for its score.

		Parameters:
		  - context: context.Context
		  - sinceYear: int (inclusive lower bound of the window)

		Returns:
		  - []*Activity: One entry per pair with recent activity
		  - error: Database retrieval failures
	*/
	RecentActivity(context context.Context, sinceYear int) ([]*Activity, error)

	/*
		ReplaceAll swaps the full snapshot set in one transaction. Readers
		see the prior set until the swap commits, never a partial one.

		Parameters:
		  - context: context.Context
		  - snapshots: []*Snapshot

		Returns:
		  - error: Persistence failures
	*/
	ReplaceAll(context context.Context, snapshots []*Snapshot) error

	/*
		TopTrending returns the latest snapshot ranked by score descending.

		Parameters:
		  - context: context.Context
		  - limit: int

		Returns:
		  - []*Snapshot: Ranked snapshot rows
		  - error: Database retrieval failures
	*/
	TopTrending(context context.Context, limit int) ([]*Snapshot, error)
}
