package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Local enforces the minimum spacing for all goroutines of one process.
// Each waiter reserves its slot under the lock and sleeps outside it, so
// concurrent callers line up behind each other at the configured interval.
type Local struct {
	minDelay time.Duration

	mu   sync.Mutex
	next time.Time
}

var _ Limiter = (*Local)(nil)

func NewLocal(minDelay time.Duration) *Local {
	return &Local{minDelay: minDelay}
}

func (l *Local) Wait(ctx context.Context) error {
	if l.minDelay <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	wait := l.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	l.next = now.Add(wait + l.minDelay)
	l.mu.Unlock()

	return sleep(ctx, wait)
}
