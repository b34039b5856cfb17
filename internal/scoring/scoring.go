// Package scoring submits property imagery to a vision model and turns the
// free-form response into a validated distress score.
package scoring

import (
	"context"
	"fmt"
	"time"
)

// Confidence is the model's self-reported confidence in its assessment.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Recommendation is the suggested follow-up for a scored property.
type Recommendation string

const (
	RecommendationPursue  Recommendation = "pursue"
	RecommendationMonitor Recommendation = "monitor"
	RecommendationSkip    Recommendation = "skip"
)

// ComponentScores breaks the overall distress score down by visible aspect,
// each on the canonical 0-100 scale.
type ComponentScores struct {
	Roof           float64 `json:"roof"`
	Siding         float64 `json:"siding"`
	Landscaping    float64 `json:"landscaping"`
	VacancySignals float64 `json:"vacancy_signals"`
}

// ScoreResult is the canonical scoring output. Higher means more distressed,
// on a 0-100 scale regardless of which schema the model answered in.
type ScoreResult struct {
	OverallScore      float64         `json:"overall_score"`
	Reasoning         string          `json:"reasoning,omitempty"`
	Components        ComponentScores `json:"component_scores"`
	Confidence        Confidence      `json:"confidence"`
	Recommendation    Recommendation  `json:"recommendation"`
	ImageQualityIssue string          `json:"image_quality_issues,omitempty"`
	Model             string          `json:"model,omitempty"`
	ScoredAt          time.Time       `json:"scored_at"`
}

// Backend is the vision-model collaborator boundary. It returns the model's
// raw text answer; parsing and validation happen in the client.
type Backend interface {
	Score(ctx context.Context, imageBytes []byte) (string, error)
	Model() string
}

// RetryableError marks a transient backend failure (rate limit, timeout,
// 5xx). The backend classifies its own failures so callers never inspect
// error text.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable scoring failure: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }
