package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleResolver resolves addresses through the Google Maps Geocoding API.
type GoogleResolver struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Resolver = (*GoogleResolver)(nil)

func NewGoogleResolver(apiKey, baseURL string) *GoogleResolver {
	return &GoogleResolver{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (g *GoogleResolver) Resolve(ctx context.Context, address string) (*Location, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// timeouts and connection failures are transient
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &RetryableError{Err: fmt.Errorf("geocode backend returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode backend returned %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding geocode response: %w", err)
	}

	switch body.Status {
	case "OK":
		if len(body.Results) == 0 {
			return nil, ErrNotFound
		}
		return parseResult(body), nil
	case "ZERO_RESULTS":
		return nil, ErrNotFound
	case "OVER_QUERY_LIMIT":
		return nil, &RetryableError{Err: fmt.Errorf("geocode rate limit exceeded")}
	default:
		return nil, fmt.Errorf("geocode failed with status %s", body.Status)
	}
}

func parseResult(body geocodeResponse) *Location {
	result := body.Results[0]

	components := map[string]string{}
	for _, comp := range result.AddressComponents {
		if len(comp.Types) > 0 {
			if _, seen := components[comp.Types[0]]; !seen {
				components[comp.Types[0]] = comp.LongName
			}
		}
	}

	street := strings.TrimSpace(components["street_number"] + " " + components["route"])

	city := components["locality"]
	if city == "" {
		city = components["sublocality"]
	}
	if city == "" {
		city = components["administrative_area_level_3"]
	}

	county := strings.TrimSuffix(components["administrative_area_level_2"], " County")

	return &Location{
		FormattedAddress: result.FormattedAddress,
		Street:           street,
		City:             city,
		State:            components["administrative_area_level_1"],
		Zip:              components["postal_code"],
		County:           county,
		Lat:              result.Geometry.Location.Lat,
		Lng:              result.Geometry.Location.Lng,
	}
}
