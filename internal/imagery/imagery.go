// Package imagery fetches street-level imagery for a coordinate: coverage
// check, front-facing heading computation, and image byte retrieval.
package imagery

import (
	"context"
	"errors"
	"fmt"
)

// Coverage is the answer to "is there imagery for this coordinate". When
// available, the camera position lets callers compute the heading that
// points at the target structure.
type Coverage struct {
	Available   bool    `json:"available"`
	CameraLat   float64 `json:"camera_lat,omitempty"`
	CameraLng   float64 `json:"camera_lng,omitempty"`
	CaptureDate string  `json:"capture_date,omitempty"` // "YYYY-MM"
	PanoID      string  `json:"pano_id,omitempty"`
}

// Request describes one image to fetch.
type Request struct {
	Lat     float64
	Lng     float64
	Heading float64
	Size    string
	FOV     int
	Pitch   int
}

// Provider is the external imagery collaborator boundary.
type Provider interface {
	CheckCoverage(ctx context.Context, lat, lng float64) (*Coverage, error)
	FetchImage(ctx context.Context, req Request) ([]byte, error)
}

// Image is the pipeline-facing result of an imagery fetch.
type Image struct {
	Available   bool      `json:"available"`
	URL         string    `json:"url,omitempty"`
	MultiAngle  []float64 `json:"multi_angle_headings,omitempty"`
	Bytes       []byte    `json:"-"`
	Heading     float64   `json:"heading,omitempty"`
	CaptureDate string    `json:"capture_date,omitempty"`
	PanoID      string    `json:"pano_id,omitempty"`
	Stale       bool      `json:"stale,omitempty"`
}

// RetryableError marks a transient provider failure.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable imagery failure: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}
