package scoring

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/prospectgrid/prospectgrid/internal/ratelimit"
	"github.com/prospectgrid/prospectgrid/pkg/metrics"
)

// Client wraps a Backend with the global call throttle and transparent
// retries. Every outbound call, from any goroutine, first waits out the
// limiter's minimum spacing. Transient backend failures are retried with
// exponential backoff up to the attempt budget; exhausting it surfaces the
// last error as a permanent failure for the call.
type Client struct {
	backend    Backend
	limiter    ratelimit.Limiter
	backoff    ratelimit.Backoff
	maxRetries int
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewClient(backend Backend, limiter ratelimit.Limiter, backoff ratelimit.Backoff, maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		backend:    backend,
		limiter:    limiter,
		backoff:    backoff,
		maxRetries: maxRetries,
		log:        zap.S().Named("scoring"),
		now:        time.Now,
	}
}

// Score throttles, calls the backend, and parses the answer. Parse failures
// are permanent: a model that answered with garbage will not answer better
// on an immediate retry of the same image.
func (c *Client) Score(ctx context.Context, imageBytes []byte) (*ScoreResult, error) {
	text, err := c.callWithRetry(ctx, imageBytes)
	if err != nil {
		return nil, err
	}

	result, err := Parse(text, c.backend.Model(), c.now())
	if err != nil {
		c.log.Warnf("unparseable scoring response: %v", err)
		return nil, err
	}
	return result, nil
}

func (c *Client) callWithRetry(ctx context.Context, imageBytes []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		text, err := c.backend.Score(ctx, imageBytes)
		if err == nil {
			return text, nil
		}

		var retryable *RetryableError
		if !errors.As(err, &retryable) {
			return "", err
		}

		lastErr = err
		if attempt == c.maxRetries {
			break
		}

		metrics.IncreaseScoringRetries()
		delay := c.backoff.Delay(attempt)
		c.log.Debugf("transient scoring failure (attempt %d/%d), retrying in %s: %v",
			attempt, c.maxRetries, delay, err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", lastErr
}
