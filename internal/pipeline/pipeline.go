// Package pipeline runs one address through the three-stage transformation:
// resolve to coordinates, fetch street-level imagery, score the image.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prospectgrid/prospectgrid/internal/imagery"
	"github.com/prospectgrid/prospectgrid/internal/resolver"
	"github.com/prospectgrid/prospectgrid/internal/scoring"
)

// ImageFetcher fetches imagery for resolved coordinates.
type ImageFetcher interface {
	Fetch(ctx context.Context, lat, lng float64) (*imagery.Image, error)
}

// Scorer submits image bytes for scoring.
type Scorer interface {
	Score(ctx context.Context, imageBytes []byte) (*scoring.ScoreResult, error)
}

// ImagerySummary is the persisted slice of the imagery stage, without the
// raw bytes.
type ImagerySummary struct {
	Available   bool      `json:"available"`
	URL         string    `json:"url,omitempty"`
	Heading     float64   `json:"heading,omitempty"`
	MultiAngle  []float64 `json:"multi_angle_headings,omitempty"`
	CaptureDate string    `json:"capture_date,omitempty"`
	PanoID      string    `json:"pano_id,omitempty"`
	Stale       bool      `json:"stale,omitempty"`
}

// Result is the full per-property payload persisted alongside the status.
type Result struct {
	Address  string               `json:"address"`
	Location *resolver.Location   `json:"location,omitempty"`
	Imagery  *ImagerySummary      `json:"imagery,omitempty"`
	Score    *scoring.ScoreResult `json:"score,omitempty"`
}

// Outcome is the terminal state the pipeline produced for one address. A
// property completes only when a score was obtained; every other exit is a
// failure with a human-readable reason.
type Outcome struct {
	Completed     bool
	Score         *float64
	FailureReason string
	Result        Result
}

// Pipeline wires the three collaborators together.
type Pipeline struct {
	resolver resolver.Resolver
	fetcher  ImageFetcher
	scorer   Scorer
	log      *zap.SugaredLogger
}

func New(r resolver.Resolver, f ImageFetcher, s Scorer) *Pipeline {
	return &Pipeline{
		resolver: r,
		fetcher:  f,
		scorer:   s,
		log:      zap.S().Named("pipeline"),
	}
}

// Run processes one address to a terminal outcome. Stage failures
// short-circuit the remaining stages; they are recorded in the outcome,
// never returned as errors, so one bad address cannot abort its siblings.
func (p *Pipeline) Run(ctx context.Context, address string) *Outcome {
	outcome := &Outcome{Result: Result{Address: address}}

	loc, err := p.resolver.Resolve(ctx, address)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			outcome.FailureReason = fmt.Sprintf("geocoding found no match for %q", address)
		} else {
			outcome.FailureReason = fmt.Sprintf("geocoding failed: %v", err)
		}
		return outcome
	}
	outcome.Result.Location = loc

	img, err := p.fetcher.Fetch(ctx, loc.Lat, loc.Lng)
	if err != nil {
		outcome.FailureReason = fmt.Sprintf("imagery fetch failed: %v", err)
		return outcome
	}
	outcome.Result.Imagery = summarize(img)

	if !img.Available || len(img.Bytes) == 0 {
		outcome.FailureReason = "no imagery available for location"
		return outcome
	}

	score, err := p.scorer.Score(ctx, img.Bytes)
	if err != nil {
		outcome.FailureReason = fmt.Sprintf("scoring failed: %v", err)
		return outcome
	}

	outcome.Completed = true
	outcome.Score = &score.OverallScore
	outcome.Result.Score = score
	p.log.Debugf("scored %q at %.1f", address, score.OverallScore)
	return outcome
}

func summarize(img *imagery.Image) *ImagerySummary {
	return &ImagerySummary{
		Available:   img.Available,
		URL:         img.URL,
		Heading:     img.Heading,
		MultiAngle:  img.MultiAngle,
		CaptureDate: img.CaptureDate,
		PanoID:      img.PanoID,
		Stale:       img.Stale,
	}
}
