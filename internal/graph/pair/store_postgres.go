// Copyright (c) 2026 Costar. All rights reserved.

package pair

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moviegraph/costar/internal/catalog"
	"github.com/moviegraph/costar/internal/graph/builder"
	"github.com/moviegraph/costar/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed graph store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// # Pair Retrieval

/*
Get retrieves one pair's aggregate row.

Parameters:
  - context: context.Context
  - personLow, personHigh: int64 (canonical order)

Returns:
  - *Pair: Hydrated aggregate
  - error: ErrNotFound if the two people never collaborated
*/
func (repository *PostgresRepository) Get(context context.Context, personLow, personHigh int64) (*Pair, error) {
	const query = `
		SELECT
			personlow, personhigh, collaborationcount, firstyear, lastyear,
			avgrating, totalrevenue, types, createdat, updatedat
		FROM graph.collaborationpair
		WHERE personlow = $1 AND personhigh = $2
	`
	pair := &Pair{}
	err := repository.db.QueryRow(context, query, personLow, personHigh).Scan(
		&pair.PersonLow, &pair.PersonHigh, &pair.CollaborationCount, &pair.FirstYear, &pair.LastYear,
		&pair.AvgRating, &pair.TotalRevenue, &pair.Types, &pair.CreatedAt, &pair.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_pair")
	}
	return pair, nil
}

/*
TopCollaborators returns a person's collaborators ranked by collaboration count.

Description: The person may sit on either side of a pair row, so the other
side is projected via CASE. COUNT(*) OVER() supplies the total for pagination
metadata. The optional type filter uses array overlap against the pair's
collaboration type tags.

Parameters:
  - context: context.Context
  - personID: int64
  - typeFilter: []string (empty = all types)
  - limit, offset: int

Returns:
  - []*Collaborator: Ranked collaborators
  - int: Total matching count
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) TopCollaborators(context context.Context, personID int64, typeFilter []string, limit, offset int) ([]*Collaborator, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			CASE WHEN personlow = $1 THEN personhigh ELSE personlow END AS collaborator,
			collaborationcount, types, lastyear,
			COUNT(*) OVER() AS total
		FROM graph.collaborationpair
		WHERE (personlow = $1 OR personhigh = $1)
	`)

	args := []any{personID}
	argID := 2

	if len(typeFilter) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND types && $%d", argID))
		args = append(args, typeFilter)
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(
		" ORDER BY collaborationcount DESC, lastyear DESC, collaborator ASC LIMIT $%d OFFSET $%d",
		argID, argID+1,
	))
	args = append(args, limit, offset)

	rows, err := repository.db.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "top_collaborators")
	}
	defer rows.Close()

	var collaborators []*Collaborator
	var total int
	for rows.Next() {
		collaborator := &Collaborator{}
		err := rows.Scan(
			&collaborator.PersonID, &collaborator.CollaborationCount,
			&collaborator.Types, &collaborator.LastYear, &total,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_collaborator")
		}
		collaborators = append(collaborators, collaborator)
	}

	return collaborators, total, rows.Err()
}

/*
Neighbors returns the adjacency for a batch of people in one query.

Description: One round-trip per BFS level. Every pair row touching any
frontier member contributes an undirected edge; the caller handles visited
tracking.

Parameters:
  - context: context.Context
  - personIDs: []int64 (current BFS frontier)

Returns:
  - map[int64][]int64: For each input ID, the people it shares a pair row with
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) Neighbors(context context.Context, personIDs []int64) (map[int64][]int64, error) {
	adjacency := make(map[int64][]int64, len(personIDs))
	if len(personIDs) == 0 {
		return adjacency, nil
	}

	const query = `
		SELECT personlow, personhigh
		FROM graph.collaborationpair
		WHERE personlow = ANY($1) OR personhigh = ANY($1)
	`
	rows, err := repository.db.Query(context, query, personIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "neighbors")
	}
	defer rows.Close()

	frontier := make(map[int64]struct{}, len(personIDs))
	for _, id := range personIDs {
		frontier[id] = struct{}{}
	}

	for rows.Next() {
		var low, high int64
		if err := rows.Scan(&low, &high); err != nil {
			return nil, dberr.Wrap(err, "scan_neighbor")
		}
		if _, ok := frontier[low]; ok {
			adjacency[low] = append(adjacency[low], high)
		}
		if _, ok := frontier[high]; ok {
			adjacency[high] = append(adjacency[high], low)
		}
	}

	return adjacency, rows.Err()
}

// # Graph Mutation

const detailInsertQuery = `
	INSERT INTO graph.collaborationdetail (
		personlow, personhigh, workid, collaborationtype,
		releaseyear, rating, revenue, genres, createdat
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	ON CONFLICT (personlow, personhigh, workid) DO NOTHING
`

// pairRecomputeQuery rebuilds one pair's aggregate from its full detail set.
// Recomputing instead of incrementing keeps the aggregate immune to drift:
// replaying a work changes nothing because the detail insert above is a
// no-op on conflict.
const pairRecomputeQuery = `
	INSERT INTO graph.collaborationpair (
		personlow, personhigh, collaborationcount, firstyear, lastyear,
		avgrating, totalrevenue, types, createdat, updatedat
	)
	SELECT
		personlow, personhigh, COUNT(*), MIN(releaseyear), MAX(releaseyear),
		AVG(rating), SUM(revenue),
		array_agg(DISTINCT collaborationtype ORDER BY collaborationtype),
		NOW(), NOW()
	FROM graph.collaborationdetail
	WHERE personlow = $1 AND personhigh = $2
	GROUP BY personlow, personhigh
	ON CONFLICT (personlow, personhigh) DO UPDATE SET
		collaborationcount = EXCLUDED.collaborationcount,
		firstyear = EXCLUDED.firstyear,
		lastyear = EXCLUDED.lastyear,
		avgrating = EXCLUDED.avgrating,
		totalrevenue = EXCLUDED.totalrevenue,
		types = EXCLUDED.types,
		updatedat = NOW()
`

/*
ApplyWork merges one work's candidate pairs into the graph.

Description: Each candidate runs in its own short transaction: detail upsert
followed by aggregate recompute. Candidates arrive sorted by (low, high), so
concurrent works touching overlapping pairs acquire row locks in the same
global order and cannot deadlock each other.

Parameters:
  - context: context.Context
  - work: *catalog.Work
  - candidates: []builder.Candidate (canonically ordered)

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRepository) ApplyWork(context context.Context, work *catalog.Work, candidates []builder.Candidate) error {
	for _, candidate := range candidates {
		if err := repository.applyCandidate(context, work, candidate); err != nil {
			return err
		}
	}
	return nil
}

// applyCandidate upserts one candidate's detail row and recomputes its pair
// aggregate inside a single transaction.
func (repository *PostgresRepository) applyCandidate(context context.Context, work *catalog.Work, candidate builder.Candidate) error {
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "begin_apply_tx")
	}
	defer transaction.Rollback(context)

	// Step 1: Detail upsert (no-op if this work was already applied)
	_, err = transaction.Exec(context, detailInsertQuery,
		candidate.PersonLow, candidate.PersonHigh, work.ID, candidate.Type,
		work.ReleaseYear, work.Rating, work.Revenue, work.Genres,
	)
	if err != nil {
		return dberr.Wrap(err, "insert_detail")
	}

	// Step 2: Aggregate recompute from the pair's full detail set
	_, err = transaction.Exec(context, pairRecomputeQuery, candidate.PersonLow, candidate.PersonHigh)
	if err != nil {
		return dberr.Wrap(err, "recompute_pair")
	}

	return transaction.Commit(context)
}

/*
TruncateAll removes every pair and detail row in one statement.

Parameters:
  - context: context.Context

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRepository) TruncateAll(context context.Context) error {
	const query = `TRUNCATE graph.collaborationdetail, graph.collaborationpair`

	if _, err := repository.db.Exec(context, query); err != nil {
		return dberr.Wrap(err, "truncate_graph")
	}
	return nil
}

/*
Stats reports current graph row counts.

Parameters:
  - context: context.Context

Returns:
  - Stats: Pair and detail row counts
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) Stats(context context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM graph.collaborationpair),
			(SELECT COUNT(*) FROM graph.collaborationdetail)
	`
	stats := Stats{}
	if err := repository.db.QueryRow(context, query).Scan(&stats.Pairs, &stats.Details); err != nil {
		return Stats{}, dberr.Wrap(err, "graph_stats")
	}
	return stats, nil
}
