package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTokenKey = "ratelimit:scoring"

// Shared keeps the throttle token in Redis. SET NX with a PX of the minimum
// delay acts as the token: whoever sets it owns the next call slot, everyone
// else sleeps out the key's remaining TTL and tries again. With N worker
// processes the aggregate call rate stays at one call per minDelay, instead
// of N calls per minDelay with per-process state.
type Shared struct {
	client   *redis.Client
	key      string
	minDelay time.Duration
	fallback *Local
}

var _ Limiter = (*Shared)(nil)

// NewShared builds a Redis-backed limiter. The local fallback takes over
// whenever Redis is unreachable, degrading to per-process spacing rather
// than failing the call.
func NewShared(client *redis.Client, minDelay time.Duration) *Shared {
	return &Shared{
		client:   client,
		key:      defaultTokenKey,
		minDelay: minDelay,
		fallback: NewLocal(minDelay),
	}
}

func (s *Shared) Wait(ctx context.Context) error {
	if s.minDelay <= 0 {
		return ctx.Err()
	}

	for {
		ok, err := s.client.SetNX(ctx, s.key, time.Now().UnixMilli(), s.minDelay).Result()
		if err != nil {
			zap.S().Named("ratelimit").Warnf("redis throttle unavailable, falling back to local: %v", err)
			return s.fallback.Wait(ctx)
		}
		if ok {
			return nil
		}

		ttl, err := s.client.PTTL(ctx, s.key).Result()
		if err != nil || ttl <= 0 {
			// token expired between the two calls, retry immediately
			ttl = time.Millisecond
		}
		if err := sleep(ctx, ttl); err != nil {
			return err
		}
	}
}
