// Copyright (c) 2026 Costar. All rights reserved.

// Command rebuild derives the full collaboration graph from the catalog and
// exits. It acquires the same rebuild lease as the API server, so it is safe
// to run while the server is up: an in-flight rebuild on either side causes
// the other to fail fast instead of racing.
//
// Intended for cron and operational backfills. The API server exposes the
// same operation asynchronously at POST /api/v1/rebuild.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moviegraph/costar/internal/catalog"
	"github.com/moviegraph/costar/internal/graph/builder"
	"github.com/moviegraph/costar/internal/graph/joblock"
	"github.com/moviegraph/costar/internal/graph/pair"
	"github.com/moviegraph/costar/internal/platform/config"
	"github.com/moviegraph/costar/internal/platform/migration"
	pgstore "github.com/moviegraph/costar/internal/platform/postgres"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	log := rawLog.With(slog.String("app", "costar-rebuild"))
	slog.SetDefault(log)

	// SIGINT/SIGTERM cancel the context so an aborted run stops mid-batch
	// instead of finishing behind the operator's back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "costar-rebuild"))
		slog.SetDefault(log)
	}

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startupCancel()

	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer pool.Close()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Rebuild ────────────────────────────────────────────────────────
	catalogRepository := catalog.NewPostgresRepository(pool)
	pairRepository := pair.NewPostgresRepository(pool)
	locker := joblock.NewLocker(pool, log)
	policy := builder.NewPolicy(cfg.PerformerPerformerCap, cfg.PerformerDirectorCap, cfg.KeyCrewRoles)
	pairService := pair.NewService(pairRepository, catalogRepository, locker, policy, cfg.ApplyWorkers, log)

	summary, err := pairService.RebuildAll(ctx)
	must(log, err, "rebuild graph")

	log.Info("rebuild complete",
		slog.String("run_id", summary.RunID),
		slog.Int("works", summary.Works),
		slog.Int("failed", summary.Failed),
		slog.Int64("pairs", summary.Stats.Pairs),
		slog.Int64("details", summary.Stats.Details),
		slog.Int64("duration_ms", summary.DurationMS),
	)

	// A partial rebuild leaves the graph incomplete. Surface that to cron.
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
