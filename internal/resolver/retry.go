package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prospectgrid/prospectgrid/internal/cache"
	"github.com/prospectgrid/prospectgrid/internal/ratelimit"
)

// CachedResolver fronts a Resolver with a shared cache and transparent
// retries. Successful lookups are cached for thirty days, transient
// failures are retried with exponential backoff, and a definitive
// not-found answer is returned immediately without retrying.
type CachedResolver struct {
	inner      Resolver
	cache      *cache.Cache
	backoff    ratelimit.Backoff
	maxRetries int
	log        *zap.SugaredLogger
}

var _ Resolver = (*CachedResolver)(nil)

func NewCachedResolver(inner Resolver, c *cache.Cache, backoff ratelimit.Backoff, maxRetries int) *CachedResolver {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &CachedResolver{
		inner:      inner,
		cache:      c,
		backoff:    backoff,
		maxRetries: maxRetries,
		log:        zap.S().Named("resolver"),
	}
}

func (r *CachedResolver) Resolve(ctx context.Context, address string) (*Location, error) {
	key := cache.GeocodeKey(address)

	var cached Location
	if r.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	loc, err := r.resolveWithRetry(ctx, address)
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, key, loc, cache.TTLGeocode)
	return loc, nil
}

func (r *CachedResolver) resolveWithRetry(ctx context.Context, address string) (*Location, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		loc, err := r.inner.Resolve(ctx, address)
		if err == nil {
			return loc, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt == r.maxRetries {
			break
		}

		delay := r.backoff.Delay(attempt)
		r.log.Debugf("transient geocode failure (attempt %d/%d), retrying in %s: %v",
			attempt, r.maxRetries, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
