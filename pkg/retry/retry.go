// Copyright (c) 2026 Costar. All rights reserved.

/*
Package retry provides bounded retry loops for transient failures.

It is intentionally small: callers supply the attempt budget, the pause
between attempts, and a classifier deciding which errors are worth retrying.
Permanent errors short-circuit immediately.
*/
package retry

import (
	"context"
	"errors"
	"time"
)

// Do calls fn up to maxTries times until it returns nil.
//
// Between attempts it sleeps for delay (respecting context cancellation).
// An error for which shouldRetry returns false is returned immediately.
// If maxTries <= 0, it defaults to 1.
func Do(ctx context.Context, maxTries int, delay time.Duration, shouldRetry func(error) bool, fn func(context.Context) error) error {
	if maxTries <= 0 {
		maxTries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxTries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !shouldRetry(err) {
			return err
		}
		lastErr = err

		// Pause before the next attempt, unless this was the last one.
		if attempt < maxTries-1 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return lastErr
}
