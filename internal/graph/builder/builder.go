// Copyright (c) 2026 Costar. All rights reserved.

/*
Package builder derives collaboration pair candidates from a work's credits.

This is the filtering heart of the graph: without it, pair generation is
quadratic over full credit lists (a 50-actor ensemble film alone yields 1225
actor pairs). The policy keeps only the collaborations with analytical value:

  - Performer pairs among top-billed performers (billing ordinal <= cap).
  - Performer-director pairs for a looser billing cap.
  - All director-director pairs.
  - Key-crew pairs restricted to an explicit role allow-list, plus
    director-to-key-crew pairs.

The package is pure: credits in, canonically ordered candidates out. It never
touches storage, which keeps the combinatorial bound property-testable.
*/
package builder

import (
	"math"
	"sort"
	"strings"

	"github.com/moviegraph/costar/internal/catalog"
)

// # Collaboration Types

// Collaboration type tags, ordered here from least to most significant.
// When one pair of people qualifies under several rules for the same work
// (e.g. a director who also performs), the most significant tag wins.
const (
	TypeKeyCrew            = "key-crew"
	TypePerformerPerformer = "performer-performer"
	TypePerformerDirector  = "performer-director"
	TypeDirectorDirector   = "director-director"
)

// AllTypes lists every valid collaboration type tag.
var AllTypes = []string{
	TypePerformerPerformer,
	TypePerformerDirector,
	TypeDirectorDirector,
	TypeKeyCrew,
}

// typeRank gives the significance order used for per-work dedup.
var typeRank = map[string]int{
	TypeKeyCrew:            0,
	TypePerformerPerformer: 1,
	TypePerformerDirector:  2,
	TypeDirectorDirector:   3,
}

// IsValidType reports whether tag is a known collaboration type.
func IsValidType(tag string) bool {
	_, ok := typeRank[tag]
	return ok
}

// # Candidate Output

// Candidate is one qualifying person pair for one work, already in
// canonical order (PersonLow < PersonHigh).
type Candidate struct {
	PersonLow  int64
	PersonHigh int64
	Type       string
}

// Skip records a credit combination the builder refused to pair.
type Skip struct {
	PersonID int64
	Reason   string
}

// Skip reasons.
const (
	SkipInvalidPersonID = "invalid_person_id"
	SkipSelfPair        = "self_pair"
)

// # Filtering Policy

// Policy holds the configured filtering thresholds.
//
// The zero value generates nothing; construct via [NewPolicy].
type Policy struct {
	// PerformerPerformerCap bounds performer-performer pairing: only
	// performers with billing ordinal <= this cap pair with each other.
	PerformerPerformerCap int

	// PerformerDirectorCap bounds performer-director pairing: performers
	// with billing ordinal <= this (looser) cap pair with every director.
	PerformerDirectorCap int

	// keyCrewRoles is the lowercased allow-list of crew role kinds that
	// generate pairs. Crew roles outside the list are ignored entirely.
	keyCrewRoles map[string]struct{}
}

// NewPolicy builds a [Policy] from configuration values.
// Role names are matched case-insensitively.
func NewPolicy(performerPerformerCap, performerDirectorCap int, keyCrewRoles []string) Policy {
	allowed := make(map[string]struct{}, len(keyCrewRoles))
	for _, role := range keyCrewRoles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return Policy{
		PerformerPerformerCap: performerPerformerCap,
		PerformerDirectorCap:  performerDirectorCap,
		keyCrewRoles:          allowed,
	}
}

// IsKeyCrewRole reports whether the role kind is on the crew allow-list.
func (policy Policy) IsKeyCrewRole(roleKind string) bool {
	_, ok := policy.keyCrewRoles[strings.ToLower(strings.TrimSpace(roleKind))]
	return ok
}

// # Candidate Generation

// pairKey identifies an unordered pair within one work.
type pairKey struct {
	low, high int64
}

// Build applies the filtering policy to one work's credits.
//
// It returns the deduplicated candidate set sorted by (PersonLow, PersonHigh)
// so downstream writers touch pair rows in a consistent global order, plus
// the skips the caller should log. Credits with invalid person IDs and pairs
// that would link a person to themselves are skipped, never fatal: one bad
// credit must not lose the rest of the work.
func (policy Policy) Build(credits []catalog.Credit) ([]Candidate, []Skip) {
	var (
		performers []catalog.Credit
		directors  []int64
		keyCrew    []int64
		skips      []Skip
		skipSeen   = make(map[Skip]struct{})
	)

	addSkip := func(personID int64, reason string) {
		entry := Skip{PersonID: personID, Reason: reason}
		if _, dup := skipSeen[entry]; dup {
			return
		}
		skipSeen[entry] = struct{}{}
		skips = append(skips, entry)
	}

	// 1. Partition credits by role, dropping malformed ones.
	seenDirector := make(map[int64]struct{})
	seenCrew := make(map[int64]struct{})
	seenPerformer := make(map[int64]int)

	for _, credit := range credits {
		if credit.PersonID <= 0 {
			addSkip(credit.PersonID, SkipInvalidPersonID)
			continue
		}

		switch {
		case credit.IsPerformer():
			// Duplicate performer credits collapse to the best billing slot.
			if existing, dup := seenPerformer[credit.PersonID]; dup {
				if credit.BillingOrdinal != nil && *credit.BillingOrdinal < existing {
					performers[indexOfPerformer(performers, credit.PersonID)] = credit
					seenPerformer[credit.PersonID] = *credit.BillingOrdinal
				}
				continue
			}
			// Performers without a billing position never meet a cap.
			ordinal := math.MaxInt
			if credit.BillingOrdinal != nil {
				ordinal = *credit.BillingOrdinal
			}
			seenPerformer[credit.PersonID] = ordinal
			performers = append(performers, credit)

		case credit.IsDirector():
			if _, dup := seenDirector[credit.PersonID]; dup {
				continue
			}
			seenDirector[credit.PersonID] = struct{}{}
			directors = append(directors, credit.PersonID)

		case policy.IsKeyCrewRole(credit.RoleKind):
			if _, dup := seenCrew[credit.PersonID]; dup {
				continue
			}
			seenCrew[credit.PersonID] = struct{}{}
			keyCrew = append(keyCrew, credit.PersonID)

		default:
			// Crew roles outside the allow-list carry no graph weight.
		}
	}

	// 2. Select performers inside each billing cap.
	var ppEligible, pdEligible []int64
	for _, performer := range performers {
		ordinal := seenPerformer[performer.PersonID]
		if ordinal <= policy.PerformerPerformerCap {
			ppEligible = append(ppEligible, performer.PersonID)
		}
		if ordinal <= policy.PerformerDirectorCap {
			pdEligible = append(pdEligible, performer.PersonID)
		}
	}

	// 3. Generate pairs per rule, keeping the most significant type when
	// the same two people qualify under several rules.
	best := make(map[pairKey]string)

	addPair := func(a, b int64, collaborationType string) {
		if a == b {
			addSkip(a, SkipSelfPair)
			return
		}
		low, high := a, b
		if low > high {
			low, high = high, low
		}
		key := pairKey{low: low, high: high}
		if current, seen := best[key]; seen && typeRank[current] >= typeRank[collaborationType] {
			return
		}
		best[key] = collaborationType
	}

	// Performer-performer: all pairs within the strict billing cap.
	for i := 0; i < len(ppEligible); i++ {
		for j := i + 1; j < len(ppEligible); j++ {
			addPair(ppEligible[i], ppEligible[j], TypePerformerPerformer)
		}
	}

	// Performer-director: capped performers against every director.
	for _, performerID := range pdEligible {
		for _, directorID := range directors {
			addPair(performerID, directorID, TypePerformerDirector)
		}
	}

	// Director-director: all director pairs.
	for i := 0; i < len(directors); i++ {
		for j := i + 1; j < len(directors); j++ {
			addPair(directors[i], directors[j], TypeDirectorDirector)
		}
	}

	// Key crew: crew pairs plus director-crew pairs.
	for i := 0; i < len(keyCrew); i++ {
		for j := i + 1; j < len(keyCrew); j++ {
			addPair(keyCrew[i], keyCrew[j], TypeKeyCrew)
		}
	}
	for _, directorID := range directors {
		for _, crewID := range keyCrew {
			addPair(directorID, crewID, TypeKeyCrew)
		}
	}

	// 4. Flatten in canonical order.
	candidates := make([]Candidate, 0, len(best))
	for key, collaborationType := range best {
		candidates = append(candidates, Candidate{
			PersonLow:  key.low,
			PersonHigh: key.high,
			Type:       collaborationType,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PersonLow != candidates[j].PersonLow {
			return candidates[i].PersonLow < candidates[j].PersonLow
		}
		return candidates[i].PersonHigh < candidates[j].PersonHigh
	})

	return candidates, skips
}

// indexOfPerformer locates a performer credit by person ID.
func indexOfPerformer(performers []catalog.Credit, personID int64) int {
	for i, performer := range performers {
		if performer.PersonID == personID {
			return i
		}
	}
	return -1
}
