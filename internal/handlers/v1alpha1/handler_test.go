package v1alpha1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/prospectgrid/prospectgrid/api/v1alpha1"
	"github.com/prospectgrid/prospectgrid/internal/cache"
	"github.com/prospectgrid/prospectgrid/internal/config"
	handlers "github.com/prospectgrid/prospectgrid/internal/handlers/v1alpha1"
	"github.com/prospectgrid/prospectgrid/internal/service"
	"github.com/prospectgrid/prospectgrid/internal/store"
)

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	return 1, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	cfg := config.NewDefault()
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := store.InitDB(cfg)
	require.NoError(t, err)

	s := store.NewStore(db)
	require.NoError(t, s.InitialMigration())
	t.Cleanup(func() { _ = s.Close() })

	svc := service.NewCampaignService(s, cache.NewWithClient(nil), noopEnqueuer{}, 10)
	router := chi.NewRouter()
	handlers.NewHandler(svc).Routes(router)
	return router
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestCreateAndFetchCampaign(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(api.CreateCampaignRequest{
		Addresses: []string{"1 First St", "2 Second St"},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1alpha1/campaigns", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created api.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "processing", created.Status)
	assert.Equal(t, 2, created.Total)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1alpha1/campaigns/"+created.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1alpha1/campaigns/"+created.ID.String()+"/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var results api.CampaignResults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results.Properties, 2)
	assert.Equal(t, 1, results.Properties[0].Position)
	assert.Equal(t, "pending", results.Properties[0].Status)
}

func TestCreateCampaignValidation(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(api.CreateCampaignRequest{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1alpha1/campaigns", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownCampaignIs404(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1alpha1/campaigns/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1alpha1/campaigns/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
