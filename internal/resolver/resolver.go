// Package resolver turns raw street addresses into coordinates and
// normalized address components.
package resolver

import (
	"context"
	"errors"
	"fmt"
)

// Location is a resolved address.
type Location struct {
	FormattedAddress string  `json:"formatted_address"`
	Street           string  `json:"street"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	Zip              string  `json:"zip"`
	County           string  `json:"county,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Resolver is the geocoding collaborator boundary.
type Resolver interface {
	Resolve(ctx context.Context, address string) (*Location, error)
}

// ErrNotFound is the definitive negative answer: the address does not
// geocode. It must not be retried.
var ErrNotFound = errors.New("no geocoding result for address")

// RetryableError marks a transient failure (rate limit, 5xx, timeout,
// connection error) that is worth retrying with backoff. The collaborator
// decides retryability from its own response, callers never inspect
// error text.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable resolver failure: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient resolver failure.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
