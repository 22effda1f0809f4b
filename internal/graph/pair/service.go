// Copyright (c) 2026 Costar. All rights reserved.

package pair

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moviegraph/costar/internal/catalog"
	"github.com/moviegraph/costar/internal/graph/builder"
	"github.com/moviegraph/costar/internal/graph/joblock"
	"github.com/moviegraph/costar/internal/platform/apperr"
	"github.com/moviegraph/costar/internal/platform/constants"
	"github.com/moviegraph/costar/internal/platform/dberr"
	"github.com/moviegraph/costar/internal/platform/validate"
	"github.com/moviegraph/costar/pkg/retry"
	"github.com/moviegraph/costar/pkg/slice"
	"github.com/moviegraph/costar/pkg/slug"
	"github.com/moviegraph/costar/pkg/uuidv7"
)

const (
	// applyMaxTries bounds transparent retries of a work's apply on
	// transient conflicts (deadlock, serialization, dropped connection).
	applyMaxTries = 3
	// applyRetryDelay is the pause between apply attempts.
	applyRetryDelay = 50 * time.Millisecond
	// rebuildLeaseTTL bounds how long a crashed rebuild blocks the next one.
	rebuildLeaseTTL = 10 * time.Minute
)

// RebuildGuard serializes full rebuilds across processes.
type RebuildGuard interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (*joblock.Lease, error)
}

// # Service Layer

// Service orchestrates edge building and graph population.
type Service struct {
	repo     Repository
	catalog  catalog.Repository
	guard    RebuildGuard
	policy   builder.Policy
	workers  int
	logger   *slog.Logger
}

// NewService constructs a graph pair [Service].
//
// workers caps rebuild parallelism; it should match the write concurrency
// the database pool can absorb.
func NewService(repo Repository, catalogRepo catalog.Repository, guard RebuildGuard, policy builder.Policy, workers int, logger *slog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		repo:    repo,
		catalog: catalogRepo,
		guard:   guard,
		policy:  policy,
		workers: workers,
		logger:  logger,
	}
}

// # Pair Queries

/*
Get returns the collaboration aggregate for two people.

The input order is irrelevant; the pair is canonicalized before lookup.

Parameters:
  - context: context.Context
  - personA, personB: int64

Returns:
  - *Pair: Aggregate row
  - error: Validation errors for bad IDs, NotFound if never collaborated
*/
func (service *Service) Get(context context.Context, personA, personB int64) (*Pair, error) {
	low, high, err := Normalize(personA, personB)
	if err != nil {
		return nil, normalizeError(err)
	}

	pair, err := service.repo.Get(context, low, high)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("Collaboration pair")
		}
		return nil, err
	}
	return pair, nil
}

/*
TopCollaborators returns a person's collaborators ranked by shared work count.

Parameters:
  - context: context.Context
  - personID: int64
  - typeFilter: []string (collaboration type tags; empty = all)
  - limit, offset: int

Returns:
  - []*Collaborator: Ranked list
  - int: Total matching count
  - error: Validation or retrieval errors
*/
func (service *Service) TopCollaborators(context context.Context, personID int64, typeFilter []string, limit, offset int) ([]*Collaborator, int, error) {
	validator := &validate.Validator{}
	validator.Positive("person_id", personID)
	for _, tag := range typeFilter {
		validator.Custom("types", !builder.IsValidType(tag), "Unknown collaboration type: "+tag)
	}
	if err := validator.Err(); err != nil {
		return nil, 0, err
	}

	return service.repo.TopCollaborators(context, personID, typeFilter, limit, offset)
}

// # Incremental Population

// ApplyResult summarizes one work's pass through the edge builder.
type ApplyResult struct {
	WorkID     int64 `json:"work_id"`
	Candidates int   `json:"candidates"`
	Skipped    int   `json:"skipped"`
}

/*
ApplyWork processes one work's credits through the edge builder and merges
the resulting candidates into the graph.

Description: Safe to call repeatedly for the same work (details are unique
per pair and work) and concurrently for different works. Malformed credits
are logged and skipped, never fatal. Transient write conflicts are retried
transparently.

Parameters:
  - ctx: context.Context
  - workID: int64

Returns:
  - *ApplyResult: Candidate and skip counts
  - error: NotFound for unknown works, persistence failures after retries
*/
func (service *Service) ApplyWork(ctx context.Context, workID int64) (*ApplyResult, error) {
	validator := &validate.Validator{}
	if err := validator.Positive("work_id", workID).Err(); err != nil {
		return nil, err
	}

	// 1. Load the work and its credits from the catalog.
	work, err := service.catalog.GetWork(ctx, workID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("Work")
		}
		return nil, err
	}

	credits, err := service.catalog.ListCredits(ctx, workID)
	if err != nil {
		return nil, err
	}

	// 2. Normalize genre tags once; detail rows store the normalized form.
	work.Genres = slice.Map(work.Genres, slug.From)

	// 3. Derive candidates under the filtering policy.
	candidates, skips := service.policy.Build(credits)
	for _, skip := range skips {
		service.logger.Warn("credit_skipped",
			slog.Int64("work_id", workID),
			slog.Int64("person_id", skip.PersonID),
			slog.String("reason", skip.Reason),
		)
	}

	// 4. Merge into the graph, retrying transient conflicts.
	applyOnce := func(attemptCtx context.Context) error {
		return service.repo.ApplyWork(attemptCtx, work, candidates)
	}
	if err := retry.Do(ctx, applyMaxTries, applyRetryDelay, isTransient, applyOnce); err != nil {
		return nil, err
	}

	service.logger.Info("work_applied",
		slog.Int64("work_id", workID),
		slog.Int("candidates", len(candidates)),
		slog.Int("skipped", len(skips)),
	)

	return &ApplyResult{
		WorkID:     workID,
		Candidates: len(candidates),
		Skipped:    len(skips),
	}, nil
}

// isTransient classifies errors worth retrying during apply. A unique
// violation means another writer already inserted the row; replaying the
// apply converges because detail inserts are conflict-tolerant.
func isTransient(err error) bool {
	return dberr.IsRetryable(err) || dberr.IsUniqueViolation(err)
}

// # Full Rebuild

// RebuildSummary reports the outcome of a full graph rebuild.
type RebuildSummary struct {
	RunID      string        `json:"run_id"`
	Works      int           `json:"works"`
	Failed     int           `json:"failed"`
	Stats      Stats         `json:"stats"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

/*
StartRebuild launches a full graph rebuild in the background.

Description: The rebuild lease is taken synchronously so overlap is rejected
before the caller is answered; the drop-and-regenerate pass then runs
detached from the request. Progress and the final summary go to the log,
correlated by the returned run ID.

Parameters:
  - ctx: context.Context

Returns:
  - string: Run ID for log correlation
  - error: AlreadyRunning if a rebuild holds the lease
*/
func (service *Service) StartRebuild(ctx context.Context) (string, error) {
	// Detach from the request before acquiring: the rebuild and its lease
	// renewal outlive the HTTP response.
	background := context.WithoutCancel(ctx)

	lease, err := service.guard.TryAcquire(background, constants.JobRebuildGraph, rebuildLeaseTTL)
	if err != nil {
		if errors.Is(err, joblock.ErrHeld) {
			return "", apperr.AlreadyRunning("Graph rebuild")
		}
		return "", apperr.Internal(err)
	}

	runID := uuidv7.New()

	go func() {
		defer service.releaseLease(lease)
		service.runRebuild(joblock.JobContext(background, lease), runID)
	}()

	return runID, nil
}

/*
RebuildAll runs a full graph rebuild synchronously.

Parameters:
  - context: context.Context

Returns:
  - *RebuildSummary: Work counts, failure count, resulting row counts
  - error: AlreadyRunning if a rebuild holds the lease
*/
func (service *Service) RebuildAll(context context.Context) (*RebuildSummary, error) {
	lease, err := service.guard.TryAcquire(context, constants.JobRebuildGraph, rebuildLeaseTTL)
	if err != nil {
		if errors.Is(err, joblock.ErrHeld) {
			return nil, apperr.AlreadyRunning("Graph rebuild")
		}
		return nil, apperr.Internal(err)
	}
	defer service.releaseLease(lease)

	return service.runRebuild(joblock.JobContext(context, lease), uuidv7.New())
}

// releaseLease returns the rebuild lease, tolerating guards that hand out
// no lease object.
func (service *Service) releaseLease(lease *joblock.Lease) {
	if lease == nil {
		return
	}
	if err := lease.Release(context.Background()); err != nil {
		service.logger.Warn("rebuild_lease_release_failed", slog.Any("error", err))
	}
}

// runRebuild drops the graph and regenerates it from every catalog work.
//
// Individual work failures are logged and counted but never abort the run:
// convergence matters more than completeness of a single pass, and a
// follow-up incremental apply repairs any gap.
func (service *Service) runRebuild(context context.Context, runID string) (*RebuildSummary, error) {
	startTime := time.Now()

	if err := service.repo.TruncateAll(context); err != nil {
		service.logger.Error("rebuild_truncate_failed",
			slog.String("run_id", runID),
			slog.Any("error", err),
		)
		return nil, err
	}

	workIDs, err := service.catalog.ListWorkIDs(context)
	if err != nil {
		service.logger.Error("rebuild_list_works_failed",
			slog.String("run_id", runID),
			slog.Any("error", err),
		)
		return nil, err
	}

	service.logger.Info("rebuild_started",
		slog.String("run_id", runID),
		slog.Int("works", len(workIDs)),
		slog.Int("workers", service.workers),
	)

	var failed atomic.Int64

	group, groupCtx := errgroup.WithContext(context)
	group.SetLimit(service.workers)

	for _, workID := range workIDs {
		workID := workID
		group.Go(func() error {
			// A dying context means a lost lease or shutdown; stop
			// instead of logging one failure per remaining work.
			if err := groupCtx.Err(); err != nil {
				return err
			}
			if _, err := service.ApplyWork(groupCtx, workID); err != nil {
				failed.Add(1)
				service.logger.Warn("rebuild_work_failed",
					slog.String("run_id", runID),
					slog.Int64("work_id", workID),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}

	// Workers swallow per-work errors, so Wait only surfaces context ends.
	if err := group.Wait(); err != nil {
		return nil, err
	}

	stats, err := service.repo.Stats(context)
	if err != nil {
		service.logger.Warn("rebuild_stats_failed",
			slog.String("run_id", runID),
			slog.Any("error", err),
		)
	}

	elapsed := time.Since(startTime)
	summary := &RebuildSummary{
		RunID:      runID,
		Works:      len(workIDs),
		Failed:     int(failed.Load()),
		Stats:      stats,
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}

	service.logger.Info("rebuild_finished",
		slog.String("run_id", runID),
		slog.Int("works", summary.Works),
		slog.Int("failed", summary.Failed),
		slog.Int64("pairs", stats.Pairs),
		slog.Int64("details", stats.Details),
		slog.Int64("duration_ms", summary.DurationMS),
	)

	return summary, nil
}

// normalizeError maps pair identity errors to client-facing validation errors.
func normalizeError(err error) error {
	switch {
	case errors.Is(err, ErrSamePerson):
		return apperr.ValidationError("Both sides of a pair must be different people")
	case errors.Is(err, ErrInvalidPerson):
		return apperr.ValidationError("Person IDs must be positive integers")
	default:
		return apperr.Internal(err)
	}
}
