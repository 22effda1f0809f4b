// Copyright (c) 2026 Costar. All rights reserved.

package trend

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moviegraph/costar/internal/platform/constants"
	"github.com/moviegraph/costar/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed trend store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// # Activity Scan

/*
RecentActivity aggregates each pair's window activity from the detail rows.

Description: One grouped pass over graph.collaborationdetail. The HAVING
clause drops pairs whose last qualifying work predates the window, so stale
pairs never reach the scorer.

Parameters:
  - context: context.Context
  - sinceYear: int (inclusive lower bound of the window)

Returns:
  - []*Activity: One entry per pair with recent activity
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) RecentActivity(context context.Context, sinceYear int) ([]*Activity, error) {
	const query = `
		SELECT
			personlow, personhigh,
			array_agg(releaseyear ORDER BY releaseyear) FILTER (WHERE releaseyear >= $1) AS recentyears,
			COUNT(*) FILTER (WHERE releaseyear < $1) AS baselinecount,
			MAX(releaseyear) AS lastyear
		FROM graph.collaborationdetail
		GROUP BY personlow, personhigh
		HAVING COUNT(*) FILTER (WHERE releaseyear >= $1) > 0
	`
	rows, err := repository.db.Query(context, query, sinceYear)
	if err != nil {
		return nil, dberr.Wrap(err, "recent_activity")
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		activity := &Activity{}
		err := rows.Scan(
			&activity.PersonLow, &activity.PersonHigh,
			&activity.RecentYears, &activity.BaselineCount, &activity.LastYear,
		)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_activity")
		}
		activities = append(activities, activity)
	}

	return activities, rows.Err()
}

// # Snapshot Replacement

/*
ReplaceAll swaps the full snapshot set atomically.

Description: Delete plus COPY inside one transaction. Concurrent readers
keep seeing the previous snapshot until the commit lands.

Parameters:
  - context: context.Context
  - snapshots: []*Snapshot

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRepository) ReplaceAll(context context.Context, snapshots []*Snapshot) error {
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "begin_refresh_tx")
	}
	defer transaction.Rollback(context)

	// Step 1: Clear the previous snapshot set
	if _, err := transaction.Exec(context, `DELETE FROM graph.trendsnapshot`); err != nil {
		return dberr.Wrap(err, "clear_snapshots")
	}

	// Step 2: Bulk-load the new set
	_, err = transaction.CopyFrom(
		context,
		pgx.Identifier{constants.SchemaGraph, "trendsnapshot"},
		[]string{"personlow", "personhigh", "score", "recentcount", "baselinecount", "lastyear", "computedat"},
		pgx.CopyFromSlice(len(snapshots), func(i int) ([]any, error) {
			snapshot := snapshots[i]
			return []any{
				snapshot.PersonLow, snapshot.PersonHigh, snapshot.Score,
				snapshot.RecentCount, snapshot.BaselineCount, snapshot.LastYear,
				snapshot.ComputedAt,
			}, nil
		}),
	)
	if err != nil {
		return dberr.Wrap(err, "copy_snapshots")
	}

	return transaction.Commit(context)
}

// # Ranking

/*
TopTrending returns the latest snapshot ranked by score descending.

Parameters:
  - context: context.Context
  - limit: int

Returns:
  - []*Snapshot: Ranked snapshot rows
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) TopTrending(context context.Context, limit int) ([]*Snapshot, error) {
	const query = `
		SELECT
			personlow, personhigh, score, recentcount, baselinecount,
			lastyear, computedat
		FROM graph.trendsnapshot
		ORDER BY score DESC, personlow ASC, personhigh ASC
		LIMIT $1
	`
	rows, err := repository.db.Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "top_trending")
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		snapshot := &Snapshot{}
		err := rows.Scan(
			&snapshot.PersonLow, &snapshot.PersonHigh, &snapshot.Score,
			&snapshot.RecentCount, &snapshot.BaselineCount,
			&snapshot.LastYear, &snapshot.ComputedAt,
		)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_snapshot")
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}
