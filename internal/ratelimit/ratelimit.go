// Package ratelimit spaces outbound calls to a rate-limited backend.
//
// Two implementations are provided: Local, which coordinates goroutines
// within one process through a mutex-guarded timestamp, and Shared, which
// keeps the throttle token in Redis so the minimum spacing holds across
// every worker process hitting the same backend.
package ratelimit

import (
	"context"
	"time"
)

// Limiter blocks until the caller is allowed to issue the next call while
// still honoring the configured minimum spacing between any two calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
