// Copyright (c) 2026 Costar. All rights reserved.

/*
Package joblock serializes maintenance jobs through short database leases.

A full graph rebuild or a trend refresh must never overlap with itself.
Rather than a distributed lock manager, a single lease row per job name in
PostgreSQL is enough: acquisition is a conditional upsert, the holder renews
the lease at half TTL, and a crashed holder's lease simply expires.

Acquisition never waits. A job finding its lease held reports that
immediately so callers can surface an "already running" result.
*/
package joblock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moviegraph/costar/pkg/uuidv7"
)

var (
	// ErrHeld is returned when another holder owns the lease.
	ErrHeld = errors.New("joblock: job is already running")
	// ErrLost is returned when a renewal finds the lease no longer ours.
	ErrLost = errors.New("joblock: lease lost")
)

const (
	// defaultTTL bounds how long a crashed holder blocks the job.
	defaultTTL = 5 * time.Minute
	// renewTimeout bounds a single renewal round-trip.
	renewTimeout = 15 * time.Second
)

// Locker hands out per-job leases backed by the graph.joblock table.
type Locker struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewLocker constructs a [Locker].
func NewLocker(db *pgxpool.Pool, logger *slog.Logger) *Locker {
	return &Locker{db: db, logger: logger}
}

// Lease is one held job lease.
//
// Context is derived from the acquiring context and is cancelled if the
// lease is lost, letting long jobs abort instead of racing a new holder.
type Lease struct {
	Name    string
	Context context.Context

	holder string
	locker *Locker
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

const tryAcquireQuery = `
	INSERT INTO graph.joblock (name, holder, expiresat)
	VALUES ($1, $2, NOW() + ($3::bigint * interval '1 millisecond'))
	ON CONFLICT (name) DO UPDATE
	SET holder = EXCLUDED.holder,
	    expiresat = EXCLUDED.expiresat
	WHERE graph.joblock.expiresat < NOW()
	   OR graph.joblock.holder = EXCLUDED.holder
	RETURNING name
`

const renewQuery = `
	UPDATE graph.joblock
	SET expiresat = NOW() + ($3::bigint * interval '1 millisecond')
	WHERE name = $1 AND holder = $2
	RETURNING name
`

const releaseQuery = `
	DELETE FROM graph.joblock
	WHERE name = $1 AND holder = $2
`

/*
TryAcquire attempts to take the lease for a named job without waiting.

Parameters:
  - context: context.Context
  - name: string (job name, e.g. "graph_rebuild")
  - ttl: time.Duration (lease lifetime; renewed at half TTL while held)

Returns:
  - *Lease: The held lease; callers must Release it
  - error: ErrHeld if another holder owns the lease
*/
func (locker *Locker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	holder := uuidv7.New()

	var returnedName string
	err := locker.db.QueryRow(ctx, tryAcquireQuery, name, holder, ttl.Milliseconds()).Scan(&returnedName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHeld
		}
		return nil, err
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	lease := &Lease{
		Name:    name,
		Context: leaseCtx,
		holder:  holder,
		locker:  locker,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}

	go lease.renewLoop(ttl)

	return lease, nil
}

// JobContext returns the context a job should run under: the lease's own
// context when one is held, so a lost lease aborts the run mid-flight, or
// fallback for guards that hand out no lease object.
func JobContext(fallback context.Context, lease *Lease) context.Context {
	if lease != nil && lease.Context != nil {
		return lease.Context
	}
	return fallback
}

// Release drops the lease and stops its renewal loop. Safe to call more
// than once; only the current holder's row is deleted.
func (lease *Lease) Release(ctx context.Context) error {
	lease.stopOnce.Do(func() {
		close(lease.stopCh)
		lease.cancel(context.Canceled)
	})

	_, err := lease.locker.db.Exec(ctx, releaseQuery, lease.Name, lease.holder)
	return err
}

// renewLoop extends the lease at half TTL until released or lost.
func (lease *Lease) renewLoop(ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-lease.stopCh:
			return
		case <-lease.Context.Done():
			return
		case <-ticker.C:
			if err := lease.renewOnce(ttl); err != nil {
				lease.locker.logger.Warn("joblock_lease_lost",
					slog.String("job", lease.Name),
					slog.Any("error", err),
				)
				lease.cancel(err)
				return
			}
		}
	}
}

// renewOnce extends the lease once.
func (lease *Lease) renewOnce(ttl time.Duration) error {
	renewCtx, cancel := context.WithTimeout(lease.Context, renewTimeout)
	defer cancel()

	var returnedName string
	err := lease.locker.db.QueryRow(renewCtx, renewQuery, lease.Name, lease.holder, ttl.Milliseconds()).Scan(&returnedName)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLost
	}
	return err
}
