// Copyright (c) 2026 Costar. All rights reserved.

package pair_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviegraph/costar/internal/catalog"
	"github.com/moviegraph/costar/internal/graph/builder"
	"github.com/moviegraph/costar/internal/graph/joblock"
	"github.com/moviegraph/costar/internal/graph/pair"
	"github.com/moviegraph/costar/internal/graph/path"
	"github.com/moviegraph/costar/internal/platform/apperr"
	"github.com/moviegraph/costar/internal/platform/dberr"
	"github.com/moviegraph/costar/pkg/pointer"
)

// # In-Memory Fakes

// memoryRepo is an executable model of the pair store: it keeps raw detail
// rows and derives every aggregate through [pair.Recompute], so the tests
// exercise the same semantics the SQL recompute mirrors.
type memoryRepo struct {
	mu      sync.Mutex
	details map[[3]int64]pair.Detail
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{details: map[[3]int64]pair.Detail{}}
}

func (repo *memoryRepo) ApplyWork(_ context.Context, work *catalog.Work, candidates []builder.Candidate) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, candidate := range candidates {
		key := [3]int64{candidate.PersonLow, candidate.PersonHigh, work.ID}
		if _, exists := repo.details[key]; exists {
			continue
		}
		repo.details[key] = pair.Detail{
			PersonLow:   candidate.PersonLow,
			PersonHigh:  candidate.PersonHigh,
			WorkID:      work.ID,
			Type:        candidate.Type,
			ReleaseYear: work.ReleaseYear,
			Rating:      work.Rating,
			Revenue:     work.Revenue,
			Genres:      work.Genres,
		}
	}
	return nil
}

func (repo *memoryRepo) Get(_ context.Context, low, high int64) (*pair.Pair, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var details []pair.Detail
	for key, detail := range repo.details {
		if key[0] == low && key[1] == high {
			details = append(details, detail)
		}
	}
	if len(details) == 0 {
		return nil, dberr.ErrNotFound
	}

	aggregate := pair.Recompute(details)
	return &pair.Pair{
		PersonLow:          low,
		PersonHigh:         high,
		CollaborationCount: aggregate.CollaborationCount,
		FirstYear:          aggregate.FirstYear,
		LastYear:           aggregate.LastYear,
		AvgRating:          aggregate.AvgRating,
		TotalRevenue:       aggregate.TotalRevenue,
		Types:              aggregate.Types,
	}, nil
}

func (repo *memoryRepo) TopCollaborators(_ context.Context, personID int64, typeFilter []string, limit, offset int) ([]*pair.Collaborator, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	byPartner := map[int64][]pair.Detail{}
	for key, detail := range repo.details {
		switch personID {
		case key[0]:
			byPartner[key[1]] = append(byPartner[key[1]], detail)
		case key[1]:
			byPartner[key[0]] = append(byPartner[key[0]], detail)
		}
	}

	var collaborators []*pair.Collaborator
	for partnerID, details := range byPartner {
		aggregate := pair.Recompute(details)
		if len(typeFilter) > 0 && !overlaps(aggregate.Types, typeFilter) {
			continue
		}
		collaborators = append(collaborators, &pair.Collaborator{
			PersonID:           partnerID,
			CollaborationCount: aggregate.CollaborationCount,
			Types:              aggregate.Types,
			LastYear:           aggregate.LastYear,
		})
	}

	sort.Slice(collaborators, func(i, j int) bool {
		if collaborators[i].CollaborationCount != collaborators[j].CollaborationCount {
			return collaborators[i].CollaborationCount > collaborators[j].CollaborationCount
		}
		if collaborators[i].LastYear != collaborators[j].LastYear {
			return collaborators[i].LastYear > collaborators[j].LastYear
		}
		return collaborators[i].PersonID < collaborators[j].PersonID
	})

	total := len(collaborators)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return collaborators[offset:end], total, nil
}

func (repo *memoryRepo) Neighbors(_ context.Context, personIDs []int64) (map[int64][]int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	adjacency := map[int64][]int64{}
	for _, personID := range personIDs {
		seen := map[int64]bool{}
		for key := range repo.details {
			switch personID {
			case key[0]:
				seen[key[1]] = true
			case key[1]:
				seen[key[0]] = true
			}
		}
		for partnerID := range seen {
			adjacency[personID] = append(adjacency[personID], partnerID)
		}
	}
	return adjacency, nil
}

func (repo *memoryRepo) TruncateAll(_ context.Context) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.details = map[[3]int64]pair.Detail{}
	return nil
}

func (repo *memoryRepo) Stats(_ context.Context) (pair.Stats, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	pairs := map[[2]int64]bool{}
	for key := range repo.details {
		pairs[[2]int64{key[0], key[1]}] = true
	}
	return pair.Stats{Pairs: int64(len(pairs)), Details: int64(len(repo.details))}, nil
}

// snapshot returns every pair's derived aggregate, keyed by (low, high).
func (repo *memoryRepo) snapshot() map[[2]int64]pair.Aggregate {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	byPair := map[[2]int64][]pair.Detail{}
	for key, detail := range repo.details {
		pairKey := [2]int64{key[0], key[1]}
		byPair[pairKey] = append(byPair[pairKey], detail)
	}

	result := map[[2]int64]pair.Aggregate{}
	for pairKey, details := range byPair {
		result[pairKey] = pair.Recompute(details)
	}
	return result
}

func overlaps(have, want []string) bool {
	for _, tag := range want {
		for _, existing := range have {
			if existing == tag {
				return true
			}
		}
	}
	return false
}

// memoryCatalog serves works and credits from maps.
type memoryCatalog struct {
	works   map[int64]catalog.Work
	credits map[int64][]catalog.Credit
	workIDs []int64
}

func (cat *memoryCatalog) GetWork(_ context.Context, workID int64) (*catalog.Work, error) {
	work, ok := cat.works[workID]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &work, nil
}

func (cat *memoryCatalog) ListCredits(_ context.Context, workID int64) ([]catalog.Credit, error) {
	return cat.credits[workID], nil
}

func (cat *memoryCatalog) ListWorkIDs(_ context.Context) ([]int64, error) {
	return cat.workIDs, nil
}

func (cat *memoryCatalog) PersonExists(_ context.Context, personID int64) (bool, error) {
	for _, credits := range cat.credits {
		for _, credit := range credits {
			if credit.PersonID == personID {
				return true, nil
			}
		}
	}
	return false, nil
}

// fakeGuard grants or refuses the rebuild lease without a database.
type fakeGuard struct {
	held bool
}

func (guard *fakeGuard) TryAcquire(_ context.Context, _ string, _ time.Duration) (*joblock.Lease, error) {
	if guard.held {
		return nil, joblock.ErrHeld
	}
	return nil, nil
}

// nullCache drops every path cache write, so each query recomputes.
type nullCache struct{}

func (nullCache) Get(context.Context, int64, int64) (*path.CacheEntry, error) { return nil, nil }

func (nullCache) Set(context.Context, int64, int64, *path.CacheEntry) error { return nil }

// # Fixtures

func performer(workID, personID int64, ordinal int) catalog.Credit {
	return catalog.Credit{WorkID: workID, PersonID: personID, RoleKind: catalog.RolePerformer, BillingOrdinal: pointer.To(ordinal)}
}

func director(workID, personID int64) catalog.Credit {
	return catalog.Credit{WorkID: workID, PersonID: personID, RoleKind: catalog.RoleDirector}
}

// threeWorkCatalog is the shared scenario: persons 1..3 perform, person 4
// directs.
//
//   - Work 101 (2019): director 4, performers 1 and 2
//   - Work 102 (2021): director 4, performers 2 and 3
//   - Work 103 (2023): performers 1 and 3, no director
func threeWorkCatalog() *memoryCatalog {
	return &memoryCatalog{
		works: map[int64]catalog.Work{
			101: {ID: 101, ReleaseYear: 2019, Rating: pointer.To(7.0), Revenue: pointer.To(int64(100_000_000)), Genres: []string{"Science Fiction", "Thriller"}},
			102: {ID: 102, ReleaseYear: 2021, Rating: pointer.To(8.0), Genres: []string{"Drama"}},
			103: {ID: 103, ReleaseYear: 2023, Revenue: pointer.To(int64(50_000_000))},
		},
		credits: map[int64][]catalog.Credit{
			101: {director(101, 4), performer(101, 1, 1), performer(101, 2, 2)},
			102: {director(102, 4), performer(102, 2, 1), performer(102, 3, 2)},
			103: {performer(103, 1, 1), performer(103, 3, 2)},
		},
		workIDs: []int64{101, 102, 103},
	}
}

func newTestService(repo *memoryRepo, cat *memoryCatalog, guard *fakeGuard) *pair.Service {
	policy := builder.NewPolicy(10, 20, []string{"composer", "editor"})
	return pair.NewService(repo, cat, guard, policy, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// # Apply Semantics

/*
TestService_ApplyWork_Idempotent verifies that re-applying the same work
changes neither counts nor aggregates.
*/
func TestService_ApplyWork_Idempotent(t *testing.T) {
	repo := newMemoryRepo()
	service := newTestService(repo, threeWorkCatalog(), &fakeGuard{})
	ctx := context.Background()

	first, err := service.ApplyWork(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Candidates)
	assert.Zero(t, first.Skipped)

	before := repo.snapshot()

	second, err := service.ApplyWork(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, repo.snapshot())

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, pair.Stats{Pairs: 3, Details: 3}, stats)
}

/*
TestService_ApplyWork_OrderIndependence applies the same works in different
orders and expects identical graphs.
*/
func TestService_ApplyWork_OrderIndependence(t *testing.T) {
	orders := [][]int64{
		{101, 102, 103},
		{103, 102, 101},
		{102, 103, 101},
	}

	var reference map[[2]int64]pair.Aggregate
	for _, order := range orders {
		repo := newMemoryRepo()
		service := newTestService(repo, threeWorkCatalog(), &fakeGuard{})

		for _, workID := range order {
			_, err := service.ApplyWork(context.Background(), workID)
			require.NoError(t, err)
		}

		if reference == nil {
			reference = repo.snapshot()
			continue
		}
		assert.Equal(t, reference, repo.snapshot())
	}
}

/*
TestService_ApplyWork_ThreeWorkScenario walks the full scenario and checks
the derived aggregates end to end.
*/
func TestService_ApplyWork_ThreeWorkScenario(t *testing.T) {
	repo := newMemoryRepo()
	service := newTestService(repo, threeWorkCatalog(), &fakeGuard{})
	ctx := context.Background()

	for _, workID := range []int64{101, 102, 103} {
		_, err := service.ApplyWork(ctx, workID)
		require.NoError(t, err)
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, pair.Stats{Pairs: 6, Details: 7}, stats)

	// Person 2 and director 4 share works 101 and 102.
	together, err := service.Get(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, together.CollaborationCount)
	assert.Equal(t, 2019, together.FirstYear)
	assert.Equal(t, 2021, together.LastYear)
	assert.Equal(t, []string{builder.TypePerformerDirector}, together.Types)

	// Rating averages both works; revenue only counts the known figure.
	require.NotNil(t, together.AvgRating)
	assert.InDelta(t, 7.5, *together.AvgRating, 0.0001)
	require.NotNil(t, together.TotalRevenue)
	assert.Equal(t, int64(100_000_000), *together.TotalRevenue)

	// Lookup order must not matter.
	reversed, err := service.Get(ctx, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, together, reversed)
}

/*
TestService_ApplyWork_Errors covers bad IDs and unknown works.
*/
func TestService_ApplyWork_Errors(t *testing.T) {
	service := newTestService(newMemoryRepo(), threeWorkCatalog(), &fakeGuard{})

	_, err := service.ApplyWork(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	_, err = service.ApplyWork(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

// # Query Semantics

/*
TestService_Get_Validation rejects identical and non-positive IDs.
*/
func TestService_Get_Validation(t *testing.T) {
	service := newTestService(newMemoryRepo(), threeWorkCatalog(), &fakeGuard{})

	_, err := service.Get(context.Background(), 7, 7)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	_, err = service.Get(context.Background(), 0, 7)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	_, err = service.Get(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestService_TopCollaborators ranks by shared count, then recency, then ID,
and honors the type filter.
*/
func TestService_TopCollaborators(t *testing.T) {
	repo := newMemoryRepo()
	service := newTestService(repo, threeWorkCatalog(), &fakeGuard{})
	ctx := context.Background()

	for _, workID := range []int64{101, 102, 103} {
		_, err := service.ApplyWork(ctx, workID)
		require.NoError(t, err)
	}

	// Person 2: director 4 twice, then performers 3 (2021) and 1 (2019).
	collaborators, total, err := service.TopCollaborators(ctx, 2, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, collaborators, 3)
	assert.Equal(t, int64(4), collaborators[0].PersonID)
	assert.Equal(t, 2, collaborators[0].CollaborationCount)
	assert.Equal(t, int64(3), collaborators[1].PersonID)
	assert.Equal(t, int64(1), collaborators[2].PersonID)

	// Filtered to performer-director pairs only.
	filtered, total, err := service.TopCollaborators(ctx, 2, []string{builder.TypePerformerDirector}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(4), filtered[0].PersonID)

	// Unknown type tags are rejected up front.
	_, _, err = service.TopCollaborators(ctx, 2, []string{"best-friends"}, 10, 0)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

// # Rebuild Semantics

/*
TestService_RebuildAll drops stale rows and regenerates the graph from the
full catalog.
*/
func TestService_RebuildAll(t *testing.T) {
	repo := newMemoryRepo()
	service := newTestService(repo, threeWorkCatalog(), &fakeGuard{})
	ctx := context.Background()

	// Seed a stale row that no catalog work supports.
	require.NoError(t, repo.ApplyWork(ctx, &catalog.Work{ID: 999, ReleaseYear: 1990}, []builder.Candidate{
		{PersonLow: 7, PersonHigh: 8, Type: builder.TypePerformerPerformer},
	}))

	summary, err := service.RebuildAll(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Works)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, pair.Stats{Pairs: 6, Details: 7}, summary.Stats)

	// The stale pair is gone.
	_, err = service.Get(ctx, 7, 8)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestService_RebuildAll_PartialFailure keeps going when a single work fails.
*/
func TestService_RebuildAll_PartialFailure(t *testing.T) {
	repo := newMemoryRepo()
	cat := threeWorkCatalog()

	// Listed but unloadable: the rebuild must log it and continue.
	cat.workIDs = append(cat.workIDs, 404)

	service := newTestService(repo, cat, &fakeGuard{})

	summary, err := service.RebuildAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Works)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, pair.Stats{Pairs: 6, Details: 7}, summary.Stats)
}

/*
TestService_StartRebuild_AlreadyRunning refuses to overlap two rebuilds.
*/
func TestService_StartRebuild_AlreadyRunning(t *testing.T) {
	service := newTestService(newMemoryRepo(), threeWorkCatalog(), &fakeGuard{held: true})

	_, err := service.StartRebuild(context.Background())
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "ALREADY_RUNNING", appError.Code)
	assert.Equal(t, 409, appError.HTTPStatus)

	_, err = service.RebuildAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, "ALREADY_RUNNING", apperr.As(err).Code)
}

// # Path Integration

/*
TestService_ApplyWork_FeedsPathQueries applies works through the pair service
and answers shortest-path queries over the adjacency that falls out.
*/
func TestService_ApplyWork_FeedsPathQueries(t *testing.T) {
	repo := newMemoryRepo()
	cat := threeWorkCatalog()
	service := newTestService(repo, cat, &fakeGuard{})
	ctx := context.Background()

	// Works 101 and 102 only: persons 1 and 3 never share a screen.
	for _, workID := range []int64{101, 102} {
		_, err := service.ApplyWork(ctx, workID)
		require.NoError(t, err)
	}

	paths := path.NewService(repo, cat, nullCache{}, 6, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Direct collaborators sit one hop apart.
	direct, err := paths.Find(ctx, 1, 4, 6)
	require.NoError(t, err)
	require.True(t, direct.Found)
	assert.Equal(t, []int64{1, 4}, direct.Path)
	assert.Equal(t, 1, direct.Length)

	// Sharing a work beats any detour: director 4 and performer 3 are on
	// work 102 together, so the two-hop route through person 2 never wins.
	shared, err := paths.Find(ctx, 4, 3, 6)
	require.NoError(t, err)
	require.True(t, shared.Found)
	assert.Equal(t, []int64{4, 3}, shared.Path)
	assert.Equal(t, 1, shared.Length)

	// Persons 1 and 3 connect only through a shared collaborator; which
	// one carries the path is tie-broken arbitrarily.
	indirect, err := paths.Find(ctx, 1, 3, 6)
	require.NoError(t, err)
	require.True(t, indirect.Found)
	assert.Equal(t, 2, indirect.Length)
	require.Len(t, indirect.Path, 3)
	assert.Equal(t, int64(1), indirect.Path[0])
	assert.Equal(t, int64(3), indirect.Path[2])

	// Applying the third work closes the triangle to a direct edge.
	_, err = service.ApplyWork(ctx, 103)
	require.NoError(t, err)

	closed, err := paths.Find(ctx, 1, 3, 6)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, closed.Path)
	assert.Equal(t, 1, closed.Length)
}
