package imagery_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectgrid/prospectgrid/internal/cache"
	"github.com/prospectgrid/prospectgrid/internal/imagery"
	"github.com/prospectgrid/prospectgrid/internal/ratelimit"
)

type fakeProvider struct {
	coverage          *imagery.Coverage
	coverageErr       error
	transientCoverage int
	imageBytes        []byte
	imageErr          error
	fetchedReqs       []imagery.Request
	coverageHits      int
}

func (f *fakeProvider) CheckCoverage(ctx context.Context, lat, lng float64) (*imagery.Coverage, error) {
	f.coverageHits++
	if f.transientCoverage > 0 {
		f.transientCoverage--
		return nil, &imagery.RetryableError{Err: errors.New("metadata timeout")}
	}
	return f.coverage, f.coverageErr
}

func (f *fakeProvider) FetchImage(ctx context.Context, req imagery.Request) ([]byte, error) {
	f.fetchedReqs = append(f.fetchedReqs, req)
	return f.imageBytes, f.imageErr
}

func disabledCache() *cache.Cache {
	return cache.NewWithClient(nil)
}

func newFetcher(provider imagery.Provider, multiAngle bool) *imagery.Fetcher {
	backoff := ratelimit.Backoff{Base: time.Millisecond, Cap: 2 * time.Millisecond}
	return imagery.NewFetcher(provider, disabledCache(), multiAngle, backoff, 3)
}

func TestFetcherAimsAtTarget(t *testing.T) {
	// camera due south of the target, heading should be ~0 (north)
	provider := &fakeProvider{
		coverage: &imagery.Coverage{
			Available: true,
			CameraLat: 39.0,
			CameraLng: -74.0,
			PanoID:    "pano-1",
		},
		imageBytes: []byte("jpeg"),
	}

	f := newFetcher(provider, false)
	img, err := f.Fetch(context.Background(), 40.0, -74.0)
	require.NoError(t, err)

	assert.True(t, img.Available)
	assert.InDelta(t, 0.0, img.Heading, 1.0)
	assert.Equal(t, []byte("jpeg"), img.Bytes)
	assert.Equal(t, "pano-1", img.PanoID)

	require.Len(t, provider.fetchedReqs, 1)
	assert.InDelta(t, img.Heading, provider.fetchedReqs[0].Heading, 0.01)
}

func TestFetcherNoCoverageShortCircuits(t *testing.T) {
	provider := &fakeProvider{coverage: &imagery.Coverage{Available: false}}

	f := newFetcher(provider, false)
	img, err := f.Fetch(context.Background(), 40.0, -74.0)
	require.NoError(t, err)

	assert.False(t, img.Available)
	assert.Empty(t, provider.fetchedReqs, "no bytes fetched without coverage")
}

func TestFetcherMultiAngleFetchesPrimaryBytesOnly(t *testing.T) {
	provider := &fakeProvider{
		coverage: &imagery.Coverage{
			Available: true,
			CameraLat: 39.0,
			CameraLng: -75.0,
		},
		imageBytes: []byte("jpeg"),
	}

	f := newFetcher(provider, true)
	img, err := f.Fetch(context.Background(), 39.0, -74.0)
	require.NoError(t, err)

	assert.Len(t, img.MultiAngle, imagery.MultiAngleCount)
	assert.InDelta(t, img.Heading, img.MultiAngle[0], 0.01)
	assert.Len(t, provider.fetchedReqs, 1, "bytes fetched for the primary angle only")
}

func TestFetcherPropagatesCoverageErrors(t *testing.T) {
	provider := &fakeProvider{coverageErr: errors.New("metadata down")}

	f := newFetcher(provider, false)
	_, err := f.Fetch(context.Background(), 40.0, -74.0)
	assert.Error(t, err)
	assert.Equal(t, 1, provider.coverageHits, "permanent failures are not retried")
}

func TestFetcherRetriesTransientCoverageFailures(t *testing.T) {
	provider := &fakeProvider{
		transientCoverage: 2,
		coverage: &imagery.Coverage{
			Available: true,
			CameraLat: 39.0,
			CameraLng: -74.0,
		},
		imageBytes: []byte("jpeg"),
	}

	f := newFetcher(provider, false)
	img, err := f.Fetch(context.Background(), 40.0, -74.0)
	require.NoError(t, err)
	assert.True(t, img.Available)
	assert.Equal(t, 3, provider.coverageHits, "two transient failures, then success")
}

func TestFetcherGivesUpAfterImageRetryBudget(t *testing.T) {
	provider := &fakeProvider{
		coverage: &imagery.Coverage{
			Available: true,
			CameraLat: 39.0,
			CameraLng: -74.0,
		},
		imageErr: &imagery.RetryableError{Err: errors.New("image backend 503")},
	}

	f := newFetcher(provider, false)
	_, err := f.Fetch(context.Background(), 40.0, -74.0)
	require.Error(t, err)
	assert.Len(t, provider.fetchedReqs, 3, "exactly the retry budget, then the last error")
}

func TestFetcherFlagsStaleCaptures(t *testing.T) {
	provider := &fakeProvider{
		coverage: &imagery.Coverage{
			Available:   true,
			CameraLat:   39.0,
			CameraLng:   -74.0,
			CaptureDate: "2019-06",
		},
		imageBytes: []byte("jpeg"),
	}

	f := newFetcher(provider, false)
	img, err := f.Fetch(context.Background(), 40.0, -74.0)
	require.NoError(t, err)
	assert.True(t, img.Stale)
}

func TestNegativeCoverageExpiresSoonerThanPositive(t *testing.T) {
	assert.Less(t, cache.TTLNoCoverage, cache.TTLCoverage)
}

func TestGoogleProviderParsesMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metadata" {
			w.Write([]byte(`{
  "status": "OK",
  "date": "2023-04",
  "pano_id": "abc123",
  "location": {"lat": 40.00012, "lng": -74.00034}
}`))
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	g := imagery.NewGoogleProvider("k", srv.URL)
	cov, err := g.CheckCoverage(context.Background(), 40.0, -74.0)
	require.NoError(t, err)

	assert.True(t, cov.Available)
	assert.Equal(t, "abc123", cov.PanoID)
	assert.Equal(t, "2023-04", cov.CaptureDate)
	assert.InDelta(t, 40.00012, cov.CameraLat, 1e-8)

	bytes, err := g.FetchImage(context.Background(), imagery.Request{Lat: 40, Lng: -74, Size: "640x640"})
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), bytes)
}

func TestGoogleProviderZeroResultsIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS"}`))
	}))
	defer srv.Close()

	g := imagery.NewGoogleProvider("k", srv.URL)
	cov, err := g.CheckCoverage(context.Background(), 85.0, 10.0)
	require.NoError(t, err)
	assert.False(t, cov.Available)
}
