// Copyright (c) 2026 Costar. All rights reserved.

/*
Package catalog is the read-only boundary to the film catalog.

The catalog tables (works, people, credits) are populated by an upstream
import pipeline that is not part of this service. This package only reads
them: the collaboration graph is derived from credits, never the other
way around.
*/
package catalog

// # Role Kinds

// Well-known role kinds on a credit. Any other value is a named crew role
// (e.g. "producer", "cinematographer") and is matched against the configured
// key-crew allow-list by the edge builder.
const (
	RolePerformer = "performer"
	RoleDirector  = "director"
)

// # Entities

// Work is a single film with the attributes the graph aggregates over.
//
// Rating and Revenue are nil when the upstream catalog has no figure for
// them. They must stay nil through aggregation: an unknown rating is
// excluded from averages, never counted as zero.
type Work struct {
	ID          int64    `json:"id"`
	ReleaseYear int      `json:"release_year"`
	Rating      *float64 `json:"rating"`
	Revenue     *int64   `json:"revenue"`
	Genres      []string `json:"genres"`
}

// Credit links one person to one work in one role.
//
// BillingOrdinal is the performer's billing position (lower = more
// prominent). It is nil for director and crew credits.
type Credit struct {
	WorkID         int64  `json:"work_id"`
	PersonID       int64  `json:"person_id"`
	RoleKind       string `json:"role_kind"`
	BillingOrdinal *int   `json:"billing_ordinal"`
}

// IsPerformer reports whether the credit is a performer credit.
func (c Credit) IsPerformer() bool { return c.RoleKind == RolePerformer }

// IsDirector reports whether the credit is a director credit.
func (c Credit) IsDirector() bool { return c.RoleKind == RoleDirector }
