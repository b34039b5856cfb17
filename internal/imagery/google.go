package imagery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// GoogleProvider talks to the Google Street View metadata and static image
// APIs.
type GoogleProvider struct {
	apiKey      string
	metadataURL string
	imageURL    string
	client      *http.Client
}

var _ Provider = (*GoogleProvider)(nil)

func NewGoogleProvider(apiKey, baseURL string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:      apiKey,
		metadataURL: baseURL + "/metadata",
		imageURL:    baseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type metadataResponse struct {
	Status   string `json:"status"`
	Date     string `json:"date"`
	PanoID   string `json:"pano_id"`
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

// CheckCoverage queries the metadata endpoint. A ZERO_RESULTS status is a
// definitive "no imagery", not an error.
func (g *GoogleProvider) CheckCoverage(ctx context.Context, lat, lng float64) (*Coverage, error) {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.metadataURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &RetryableError{Err: fmt.Errorf("metadata endpoint returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata endpoint returned %d", resp.StatusCode)
	}

	var body metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding metadata response: %w", err)
	}

	if body.Status != "OK" {
		return &Coverage{Available: false}, nil
	}

	return &Coverage{
		Available:   true,
		CameraLat:   body.Location.Lat,
		CameraLng:   body.Location.Lng,
		CaptureDate: body.Date,
		PanoID:      body.PanoID,
	}, nil
}

// ImageURL builds the static image URL for a request. Exposed so results can
// carry a reviewable link without re-fetching bytes.
func (g *GoogleProvider) ImageURL(req Request) string {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", req.Lat, req.Lng))
	q.Set("size", req.Size)
	q.Set("fov", fmt.Sprintf("%d", req.FOV))
	q.Set("pitch", fmt.Sprintf("%d", req.Pitch))
	q.Set("heading", fmt.Sprintf("%.1f", req.Heading))
	q.Set("key", g.apiKey)
	return g.imageURL + "?" + q.Encode()
}

func (g *GoogleProvider) FetchImage(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.ImageURL(req), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &RetryableError{Err: fmt.Errorf("image endpoint returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image endpoint returned %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
