// Copyright (c) 2026 Costar. All rights reserved.

/*
Package pair owns the persisted collaboration graph.

Two structures back it: the pair table (one row per unique person pair,
carrying rolling aggregates) and the detail table (one row per pair per
work). Details are the source of truth; pair aggregates are always
recomputed from the full detail set of a pair, which makes applying the
same work twice, or applying works in any order, converge to identical
aggregates.
*/
package pair

import (
	"errors"
	"sort"
	"time"
)

// Sentinel errors for pair identity handling.
var (
	// ErrSamePerson is returned when both sides of a pair are the same person.
	ErrSamePerson = errors.New("pair: both sides are the same person")
	// ErrInvalidPerson is returned for non-positive person IDs.
	ErrInvalidPerson = errors.New("pair: person id must be positive")
)

// # Entities

// Pair is the canonical summary of all collaboration between two people.
//
// Identity is (PersonLow, PersonHigh) with PersonLow < PersonHigh, enforced
// at write time. AvgRating and TotalRevenue are nil when none of the pair's
// works carry the respective figure.
type Pair struct {
	PersonLow          int64     `json:"person_low_id"`
	PersonHigh         int64     `json:"person_high_id"`
	CollaborationCount int       `json:"collaboration_count"`
	FirstYear          int       `json:"first_year"`
	LastYear           int       `json:"last_year"`
	AvgRating          *float64  `json:"avg_rating"`
	TotalRevenue       *int64    `json:"total_revenue"`
	Types              []string  `json:"types"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Detail is the per-work breakdown behind a [Pair]'s aggregate.
//
// Unique on (PersonLow, PersonHigh, WorkID); re-applying the same work for
// the same pair is a no-op, never a double count. Work facts are denormalized
// here so trend computation never joins back into the catalog.
type Detail struct {
	PersonLow   int64     `json:"person_low_id"`
	PersonHigh  int64     `json:"person_high_id"`
	WorkID      int64     `json:"work_id"`
	Type        string    `json:"collaboration_type"`
	ReleaseYear int       `json:"release_year"`
	Rating      *float64  `json:"rating"`
	Revenue     *int64    `json:"revenue"`
	Genres      []string  `json:"genres"`
	CreatedAt   time.Time `json:"created_at"`
}

// Collaborator is one ranked entry in a person's top-collaborators list.
type Collaborator struct {
	PersonID           int64    `json:"person_id"`
	CollaborationCount int      `json:"collaboration_count"`
	Types              []string `json:"types"`
	LastYear           int      `json:"last_year"`
}

// Stats reports graph row counts, used in rebuild summaries.
type Stats struct {
	Pairs   int64 `json:"pairs"`
	Details int64 `json:"details"`
}

// # Canonical Ordering

// Normalize returns the canonical (low, high) ordering of two person IDs.
//
// Every persisted pair row and every path cache key uses this ordering;
// callers normalize once at the boundary and pass canonical pairs inward.
func Normalize(a, b int64) (low, high int64, err error) {
	if a <= 0 || b <= 0 {
		return 0, 0, ErrInvalidPerson
	}
	if a == b {
		return 0, 0, ErrSamePerson
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}

// # Aggregate Semantics

// Aggregate is the derived summary of one pair's detail set.
type Aggregate struct {
	CollaborationCount int
	FirstYear          int
	LastYear           int
	AvgRating          *float64
	TotalRevenue       *int64
	Types              []string
}

// Recompute derives a pair's aggregate from its full detail set.
//
// This is the reference semantics the SQL recompute mirrors: count over all
// details, year range, average over rated works only, revenue total over
// known figures only, and the sorted union of collaboration types. Unknown
// ratings and revenues are excluded, never treated as zero.
func Recompute(details []Detail) Aggregate {
	aggregate := Aggregate{CollaborationCount: len(details)}
	if len(details) == 0 {
		return aggregate
	}

	var (
		ratingSum    float64
		ratedCount   int
		revenueSum   int64
		revenueKnown bool
		typeSet      = map[string]struct{}{}
	)

	aggregate.FirstYear = details[0].ReleaseYear
	aggregate.LastYear = details[0].ReleaseYear

	for _, detail := range details {
		if detail.ReleaseYear < aggregate.FirstYear {
			aggregate.FirstYear = detail.ReleaseYear
		}
		if detail.ReleaseYear > aggregate.LastYear {
			aggregate.LastYear = detail.ReleaseYear
		}
		if detail.Rating != nil {
			ratingSum += *detail.Rating
			ratedCount++
		}
		if detail.Revenue != nil {
			revenueSum += *detail.Revenue
			revenueKnown = true
		}
		typeSet[detail.Type] = struct{}{}
	}

	if ratedCount > 0 {
		avg := ratingSum / float64(ratedCount)
		aggregate.AvgRating = &avg
	}
	if revenueKnown {
		total := revenueSum
		aggregate.TotalRevenue = &total
	}

	for tag := range typeSet {
		aggregate.Types = append(aggregate.Types, tag)
	}
	sort.Strings(aggregate.Types)

	return aggregate
}
