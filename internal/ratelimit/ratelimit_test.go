package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prospectgrid/prospectgrid/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEnforcesSpacing(t *testing.T) {
	const minDelay = 30 * time.Millisecond
	limiter := ratelimit.NewLocal(minDelay)
	ctx := context.Background()

	var mu sync.Mutex
	var stamps []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Wait(ctx))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 4)
	// completion order is unordered, check the smallest pairwise gap;
	// allow a small tolerance for scheduling slack
	assert.GreaterOrEqual(t, minGap(stamps), minDelay-5*time.Millisecond)
}

func minGap(stamps []time.Time) time.Duration {
	sorted := append([]time.Time(nil), stamps...)
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Before(sorted[i]) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	min := time.Duration(1<<62 - 1)
	for i := 1; i < len(sorted); i++ {
		if gap := sorted[i].Sub(sorted[i-1]); gap < min {
			min = gap
		}
	}
	return min
}

func TestLocalZeroDelayDoesNotBlock(t *testing.T) {
	limiter := ratelimit.NewLocal(0)
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestLocalHonorsContextCancellation(t *testing.T) {
	limiter := ratelimit.NewLocal(time.Second)
	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx)) // first call is free

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := limiter.Wait(cancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := ratelimit.Backoff{Base: 100 * time.Millisecond, Cap: 500 * time.Millisecond}

	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		4: 500 * time.Millisecond, // capped before jitter
	} {
		d := b.Delay(attempt)
		// jitter is ±30% of the pre-jitter value
		assert.GreaterOrEqual(t, d, time.Duration(float64(want)*0.69), "attempt %d", attempt)
		assert.LessOrEqual(t, d, time.Duration(float64(want)*1.31), "attempt %d", attempt)
	}
}

func TestBackoffClampsAttempt(t *testing.T) {
	b := ratelimit.Backoff{Base: 100 * time.Millisecond}
	d := b.Delay(0)
	assert.GreaterOrEqual(t, d, 69*time.Millisecond)
	assert.LessOrEqual(t, d, 131*time.Millisecond)
}
