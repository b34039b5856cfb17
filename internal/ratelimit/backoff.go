package ratelimit

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponential retry delays: base * 2^(attempt-1), capped,
// with ±30% jitter so synchronized workers do not retry in lockstep.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// Delay returns the wait before the given retry attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := float64(b.Base) * math.Pow(2, float64(attempt-1))
	if b.Cap > 0 && d > float64(b.Cap) {
		d = float64(b.Cap)
	}

	jitter := 1 + (rand.Float64()*0.6 - 0.3)
	return time.Duration(d * jitter)
}
