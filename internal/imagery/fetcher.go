package imagery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prospectgrid/prospectgrid/internal/cache"
	"github.com/prospectgrid/prospectgrid/internal/geo"
	"github.com/prospectgrid/prospectgrid/internal/ratelimit"
)

// MultiAngleCount is the number of headings a premium capture produces,
// primary included. Cost estimates price the same count.
const MultiAngleCount = 3

const (
	defaultSize  = "640x640"
	defaultFOV   = 90
	defaultPitch = 10

	// multi-angle capture sweeps ±spread around the front-facing heading
	multiAngleSpread = 25.0

	// captures older than this are flagged stale
	staleAfterYears = 3
)

// Fetcher is the cache-backed imagery front: coverage lookups go through the
// cache with asymmetric TTLs, then a front-facing heading is computed from
// the camera position and the bytes for exactly one representative image are
// fetched. Transient provider failures are retried with backoff up to the
// configured budget.
type Fetcher struct {
	provider   Provider
	cache      *cache.Cache
	multiAngle bool
	backoff    ratelimit.Backoff
	maxRetries int
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewFetcher(provider Provider, c *cache.Cache, multiAngle bool, backoff ratelimit.Backoff, maxRetries int) *Fetcher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Fetcher{
		provider:   provider,
		cache:      c,
		multiAngle: multiAngle,
		backoff:    backoff,
		maxRetries: maxRetries,
		log:        zap.S().Named("imagery"),
		now:        time.Now,
	}
}

// Fetch returns the imagery for a target coordinate, or an unavailable Image
// when the coordinate has no coverage.
func (f *Fetcher) Fetch(ctx context.Context, lat, lng float64) (*Image, error) {
	cov, err := f.coverage(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if !cov.Available {
		f.log.Debugf("no imagery coverage at %.5f,%.5f", lat, lng)
		return &Image{Available: false}, nil
	}

	// aim the camera at the target instead of a fixed compass direction
	heading := geo.Bearing(cov.CameraLat, cov.CameraLng, lat, lng)

	req := Request{
		Lat:     lat,
		Lng:     lng,
		Heading: heading,
		Size:    defaultSize,
		FOV:     defaultFOV,
		Pitch:   defaultPitch,
	}

	img := &Image{
		Available:   true,
		Heading:     heading,
		CaptureDate: cov.CaptureDate,
		PanoID:      cov.PanoID,
		Stale:       f.isStale(cov.CaptureDate),
	}

	if f.multiAngle {
		img.MultiAngle = geo.CandidateHeadings(heading, multiAngleSpread, MultiAngleCount)
	}

	// bytes are fetched for the primary heading only, the extra angles stay
	// as URLs to keep per-property cost flat
	var bytes []byte
	err = f.withRetry(ctx, "image fetch", func() error {
		var ferr error
		bytes, ferr = f.provider.FetchImage(ctx, req)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	img.Bytes = bytes

	if urler, ok := f.provider.(interface{ ImageURL(Request) string }); ok {
		img.URL = urler.ImageURL(req)
	}

	return img, nil
}

// coverage consults the cache before the provider. Positive answers live
// longer than negative ones because upstream coverage grows over time.
func (f *Fetcher) coverage(ctx context.Context, lat, lng float64) (*Coverage, error) {
	key := cache.CoverageKey(geo.RoundCoord(lat), geo.RoundCoord(lng))

	var cached Coverage
	if f.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	var cov *Coverage
	err := f.withRetry(ctx, "coverage check", func() error {
		var cerr error
		cov, cerr = f.provider.CheckCoverage(ctx, lat, lng)
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("checking imagery coverage: %w", err)
	}

	ttl := cache.TTLCoverage
	if !cov.Available {
		ttl = cache.TTLNoCoverage
	}
	f.cache.Set(ctx, key, cov, ttl)

	return cov, nil
}

// withRetry runs call up to the retry budget, backing off between attempts.
// Only errors marked retryable earn another attempt.
func (f *Fetcher) withRetry(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		lastErr = err
		if attempt == f.maxRetries {
			break
		}

		delay := f.backoff.Delay(attempt)
		f.log.Debugf("transient %s failure (attempt %d/%d), retrying in %s: %v",
			op, attempt, f.maxRetries, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (f *Fetcher) isStale(captureDate string) bool {
	if captureDate == "" {
		return false
	}
	yearStr, _, _ := strings.Cut(captureDate, "-")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return false
	}
	return f.now().Year()-year > staleAfterYears
}
