package scoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// scoringPrompt asks for the current 0-100 schema. The parser still accepts
// legacy 1-10 answers from older prompt revisions.
const scoringPrompt = `Analyze this street-level property image and respond with a JSON object:
{
  "distress_score": 0-100,
  "reasoning": "brief explanation",
  "component_scores": {
    "roof": 0-100,
    "siding": 0-100,
    "landscaping": 0-100,
    "vacancy_signals": 0-100
  },
  "confidence": "high|medium|low",
  "recommendation": "pursue|monitor|skip",
  "image_quality_issues": "optional description of anything limiting the assessment"
}

100 = severe visible distress, 0 = excellent condition. Respond with JSON only.`

// GeminiBackend scores images through the Gemini generateContent API.
type GeminiBackend struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

var _ Backend = (*GeminiBackend)(nil)

func NewGeminiBackend(apiKey, endpoint, model string) *GeminiBackend {
	return &GeminiBackend{
		apiKey:   apiKey,
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *GeminiBackend) Model() string { return g.model }

type generateContentRequest struct {
	Contents []struct {
		Parts []map[string]any `json:"parts"`
	} `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiBackend) Score(ctx context.Context, imageBytes []byte) (string, error) {
	var body generateContentRequest
	body.Contents = append(body.Contents, struct {
		Parts []map[string]any `json:"parts"`
	}{
		Parts: []map[string]any{
			{"inline_data": map[string]string{
				"mime_type": "image/jpeg",
				"data":      base64.StdEncoding.EncodeToString(imageBytes),
			}},
			{"text": scoringPrompt},
		},
	})

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{Err: fmt.Errorf("scoring backend returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scoring backend returned %d", resp.StatusCode)
	}

	var decoded generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding scoring response: %w", err)
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("scoring response contained no candidates")
	}

	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
