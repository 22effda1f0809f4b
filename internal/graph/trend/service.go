// Copyright (c) 2026 Costar. All rights reserved.

package trend

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/moviegraph/costar/internal/graph/joblock"
	"github.com/moviegraph/costar/internal/platform/apperr"
	"github.com/moviegraph/costar/internal/platform/constants"
	"github.com/moviegraph/costar/internal/platform/validate"
)

const (
	// refreshLeaseTTL bounds how long a crashed refresh blocks the next one.
	refreshLeaseTTL = 5 * time.Minute
	// maxTrendingLimit caps one trending page.
	maxTrendingLimit = 100
)

// RefreshGuard serializes snapshot refreshes across processes.
type RefreshGuard interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (*joblock.Lease, error)
}

// # Service Layer

// Service computes and serves the trend ranking.
type Service struct {
	repo        Repository
	guard       RefreshGuard
	windowYears int
	logger      *slog.Logger
}

// NewService constructs a trend [Service]. windowYears is the width of the
// recent-activity window in release years.
func NewService(repo Repository, guard RefreshGuard, windowYears int, logger *slog.Logger) *Service {
	if windowYears < 1 {
		windowYears = 1
	}
	return &Service{
		repo:        repo,
		guard:       guard,
		windowYears: windowYears,
		logger:      logger,
	}
}

// # Scoring

// Score rates one pair's collaboration velocity against its history.
//
// Each in-window work contributes 2^(-age), age measured in release years:
// this year's work counts 1.0, last year's 0.5, and so on. The decayed sum
// is then damped by the pair's pre-window history, so a first-time surge
// outranks the same activity from a pair that has always worked together.
func Score(activity *Activity, currentYear int) float64 {
	var momentum float64
	for _, year := range activity.RecentYears {
		age := currentYear - year
		if age < 0 {
			age = 0
		}
		momentum += math.Exp2(-float64(age))
	}
	return momentum / float64(1+activity.BaselineCount)
}

// # Refresh

/*
Refresh recomputes every recently active pair's score and swaps the full
snapshot set.

Description: At most one refresh runs at a time; overlapping invocations
are rejected, not queued. Readers keep the previous snapshot until the
replacement commits.

Parameters:
  - ctx: context.Context

Returns:
  - int: Number of snapshot rows written
  - error: AlreadyRunning if a refresh holds the lease
*/
func (service *Service) Refresh(ctx context.Context) (int, error) {
	lease, err := service.guard.TryAcquire(ctx, constants.JobTrendRefresh, refreshLeaseTTL)
	if err != nil {
		if errors.Is(err, joblock.ErrHeld) {
			return 0, apperr.AlreadyRunning("Trend refresh")
		}
		return 0, apperr.Internal(err)
	}
	defer service.releaseLease(lease)

	// A lost lease cancels the run before a second refresher can collide.
	runCtx := joblock.JobContext(ctx, lease)

	startTime := time.Now()
	currentYear := startTime.UTC().Year()
	sinceYear := currentYear - service.windowYears + 1

	// 1. Collect each pair's window activity.
	activities, err := service.repo.RecentActivity(runCtx, sinceYear)
	if err != nil {
		return 0, err
	}

	// 2. Score every active pair.
	computedAt := startTime.UTC()
	snapshots := make([]*Snapshot, 0, len(activities))
	for _, activity := range activities {
		snapshots = append(snapshots, &Snapshot{
			PersonLow:     activity.PersonLow,
			PersonHigh:    activity.PersonHigh,
			Score:         Score(activity, currentYear),
			RecentCount:   len(activity.RecentYears),
			BaselineCount: activity.BaselineCount,
			LastYear:      activity.LastYear,
			ComputedAt:    computedAt,
		})
	}

	// 3. Swap the snapshot set.
	if err := service.repo.ReplaceAll(runCtx, snapshots); err != nil {
		return 0, err
	}

	service.logger.Info("trend_refreshed",
		slog.Int("pairs", len(snapshots)),
		slog.Int("since_year", sinceYear),
		slog.Int64("duration_ms", time.Since(startTime).Milliseconds()),
	)
	return len(snapshots), nil
}

// releaseLease returns the refresh lease, tolerating guards that hand out
// no lease object.
func (service *Service) releaseLease(lease *joblock.Lease) {
	if lease == nil {
		return
	}
	if err := lease.Release(context.Background()); err != nil {
		service.logger.Warn("trend_lease_release_failed", slog.Any("error", err))
	}
}

// # Ranking

/*
TopTrending returns the latest snapshot ranked by score descending.

Parameters:
  - ctx: context.Context
  - limit: int (1 to 100)

Returns:
  - []*Snapshot: Ranked snapshot rows
  - error: Validation or retrieval errors
*/
func (service *Service) TopTrending(ctx context.Context, limit int) ([]*Snapshot, error) {
	validator := &validate.Validator{}
	if err := validator.Range("limit", limit, 1, maxTrendingLimit).Err(); err != nil {
		return nil, err
	}
	return service.repo.TopTrending(ctx, limit)
}

// # Scheduling

/*
RunScheduler refreshes the snapshot on a fixed interval until ctx ends.

Description: Runs one refresh at startup, then on every tick. A refresh
already running elsewhere is skipped; other failures are logged and the
loop keeps going.

Parameters:
  - ctx: context.Context
  - interval: time.Duration
*/
func (service *Service) RunScheduler(ctx context.Context, interval time.Duration) {
	service.logger.Info("trend_scheduler_started", slog.Duration("interval", interval))
	service.refreshQuietly(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			service.logger.Info("trend_scheduler_stopped")
			return
		case <-ticker.C:
			service.refreshQuietly(ctx)
		}
	}
}

// refreshQuietly absorbs refresh errors so the scheduler never dies.
func (service *Service) refreshQuietly(ctx context.Context) {
	if _, err := service.Refresh(ctx); err != nil {
		if appError := apperr.As(err); appError != nil && appError.Code == "ALREADY_RUNNING" {
			service.logger.Info("trend_refresh_skipped")
			return
		}
		service.logger.Error("trend_refresh_failed", slog.Any("error", err))
	}
}
