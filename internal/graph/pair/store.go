// Copyright (c) 2026 Costar. All rights reserved.

package pair

import (
	"context"

	"github.com/moviegraph/costar/internal/catalog"
	"github.com/moviegraph/costar/internal/graph/builder"
)

// # Graph Data Access

// Repository defines the data access contract for the collaboration graph.
type Repository interface {

	/*
		Get retrieves one pair's aggregate row.

		Parameters:
		  - context: context.Context
		  - personLow, personHigh: int64 (canonical order, personLow < personHigh)

		Returns:
		  - *Pair: Hydrated aggregate
		  - error: ErrNotFound if the two people never collaborated
	*/
	Get(context context.Context, personLow, personHigh int64) (*Pair, error)

	/*
		TopCollaborators returns a person's collaborators ranked by
		collaboration count.

		Parameters:
		  - context: context.Context
		  - personID: int64
		  - typeFilter: []string (collaboration type tags; empty = all types)
		  - limit, offset: int

		Returns:
		  - []*Collaborator: Ranked collaborators
		  - int: Total matching count
		  - error: Database retrieval failures
	*/
	TopCollaborators(context context.Context, personID int64, typeFilter []string, limit, offset int) ([]*Collaborator, int, error)

	/*
		Neighbors returns the adjacency for a batch of people in one query.
		An edge exists wherever a pair row exists, regardless of type or count.

		Parameters:
		  - context: context.Context
		  - personIDs: []int64 (current BFS frontier)

		Returns:
		  - map[int64][]int64: For each input ID, the people it shares a pair row with
		  - error: Database retrieval failures
	*/
	Neighbors(context context.Context, personIDs []int64) (map[int64][]int64, error)

	/*
		ApplyWork merges one work's candidate pairs into the graph.

		Description: For each candidate, inserts the (pair, work) detail row
		if absent and recomputes the pair aggregate from the pair's full
		detail set, both inside one transaction per candidate. Candidates
		must already be sorted canonically so concurrent writers lock pair
		rows in the same global order.

		Parameters:
		  - context: context.Context
		  - work: *catalog.Work (provides year, rating, revenue, genres)
		  - candidates: []builder.Candidate (canonically ordered)

		Returns:
		  - error: Persistence failures
	*/
	ApplyWork(context context.Context, work *catalog.Work, candidates []builder.Candidate) error

	/*
		TruncateAll removes every pair and detail row. Used by the full
		rebuild before regenerating the graph from scratch.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Persistence failures
	*/
	TruncateAll(context context.Context) error

	/*
		Stats reports current graph row counts.

		Parameters:
		  - context: context.Context

		Returns:
		  - Stats: Pair and detail row counts
		  - error: Database retrieval failures
	*/
	Stats(context context.Context) (Stats, error)
}
