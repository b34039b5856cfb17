package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseable means no JSON object could be extracted from the model's
// answer. It is a permanent failure for the call.
var ErrUnparseable = errors.New("no parseable score payload in response")

// rawPayload accepts both score schemas the model is known to answer in:
// the legacy 1-10 shape and the current 0-100 shape. Normalization picks
// one and maps onto the canonical representation.
type rawPayload struct {
	// current schema
	DistressScore *float64 `json:"distress_score"`
	// legacy schema
	OverallScore *float64 `json:"overall_score"`

	Reasoning         string             `json:"reasoning"`
	ComponentScores   map[string]float64 `json:"component_scores"`
	Confidence        string             `json:"confidence"`
	Recommendation    string             `json:"recommendation"`
	ImageQualityIssue string             `json:"image_quality_issues"`
}

// Parse extracts and validates a score from free-form model output. The
// text is tried as direct JSON first, then as a fenced ```json block, then
// as the first balanced {...} span. Anything less than a usable overall
// score is ErrUnparseable.
func Parse(text, model string, now time.Time) (*ScoreResult, error) {
	raw, err := extract(text)
	if err != nil {
		return nil, err
	}
	return normalize(raw, model, now)
}

func extract(text string) (*rawPayload, error) {
	var raw rawPayload
	if err := json.Unmarshal([]byte(text), &raw); err == nil {
		return &raw, nil
	}

	if _, after, found := strings.Cut(text, "```json"); found {
		if block, _, closed := strings.Cut(after, "```"); closed {
			if err := json.Unmarshal([]byte(strings.TrimSpace(block)), &raw); err == nil {
				return &raw, nil
			}
		}
	}

	if span := firstBalancedObject(text); span != "" {
		if err := json.Unmarshal([]byte(span), &raw); err == nil {
			return &raw, nil
		}
	}

	return nil, ErrUnparseable
}

// firstBalancedObject returns the first balanced {...} span in text, or ""
// when none exists. Braces inside JSON strings are skipped.
func firstBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// normalize maps whichever input schema the payload used onto the canonical
// 0-100 representation. Optional fields fall back to safe defaults; a
// missing overall score is a hard failure.
func normalize(raw *rawPayload, model string, now time.Time) (*ScoreResult, error) {
	var overall float64
	var legacy bool
	switch {
	case raw.DistressScore != nil:
		overall = *raw.DistressScore
	case raw.OverallScore != nil:
		overall = *raw.OverallScore
		// the legacy schema scored 1-10, the current one 0-100
		legacy = overall <= 10
		if legacy {
			overall *= 10
		}
	default:
		return nil, fmt.Errorf("%w: missing overall score", ErrUnparseable)
	}

	components := ComponentScores{
		Roof:           componentScore(raw.ComponentScores, "roof", legacy),
		Siding:         componentScore(raw.ComponentScores, "siding", legacy),
		Landscaping:    componentScore(raw.ComponentScores, "landscaping", legacy),
		VacancySignals: componentScore(raw.ComponentScores, "vacancy_signals", legacy),
	}

	return &ScoreResult{
		OverallScore:      clampScore(overall),
		Reasoning:         raw.Reasoning,
		Components:        components,
		Confidence:        parseConfidence(raw.Confidence),
		Recommendation:    parseRecommendation(raw.Recommendation, clampScore(overall)),
		ImageQualityIssue: raw.ImageQualityIssue,
		Model:             model,
		ScoredAt:          now,
	}, nil
}

func componentScore(components map[string]float64, key string, legacy bool) float64 {
	v, ok := components[key]
	if !ok {
		return 0
	}
	if legacy {
		v *= 10
	}
	return clampScore(v)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func parseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceLow
	}
}

// parseRecommendation validates the model's recommendation, deriving one
// from the score when absent or unrecognized.
func parseRecommendation(s string, score float64) Recommendation {
	switch Recommendation(strings.ToLower(strings.TrimSpace(s))) {
	case RecommendationPursue:
		return RecommendationPursue
	case RecommendationMonitor:
		return RecommendationMonitor
	case RecommendationSkip:
		return RecommendationSkip
	}

	switch {
	case score >= 70:
		return RecommendationPursue
	case score >= 40:
		return RecommendationMonitor
	default:
		return RecommendationSkip
	}
}
