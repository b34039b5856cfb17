// Package v1alpha1 exposes the HTTP front door. Handlers translate between
// wire types and the campaign service; all semantics live in the service.
package v1alpha1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/prospectgrid/prospectgrid/api/v1alpha1"
	"github.com/prospectgrid/prospectgrid/internal/service"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
)

type Handler struct {
	campaigns *service.CampaignService
	log       *zap.SugaredLogger
}

func NewHandler(campaigns *service.CampaignService) *Handler {
	return &Handler{
		campaigns: campaigns,
		log:       zap.S().Named("handlers"),
	}
}

// Routes mounts the v1alpha1 API onto a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Post("/api/v1alpha1/sessions", h.CreateSession)
	r.Get("/api/v1alpha1/sessions/{id}/estimate", h.EstimateSession)
	r.Post("/api/v1alpha1/campaigns", h.CreateCampaign)
	r.Get("/api/v1alpha1/campaigns/{id}", h.GetStatus)
	r.Get("/api/v1alpha1/campaigns/{id}/results", h.GetResults)
	r.Get("/api/v1alpha1/campaigns/{id}/properties/{position}", h.GetProperty)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, api.Health{Status: "ok"})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.NewErrInvalidRequest("invalid request body: %v", err))
		return
	}

	session, err := h.campaigns.CreateSession(r.Context(), req.Addresses)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, api.SessionFromService(session))
}

func (h *Handler) EstimateSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, service.NewErrInvalidRequest("invalid session id"))
		return
	}

	estimate, err := h.campaigns.EstimateSession(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, api.EstimateFromService(estimate))
}

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, service.NewErrInvalidRequest("invalid request body: %v", err))
		return
	}

	var campaign *model.Campaign
	var err error
	if req.SessionID != nil {
		campaign, err = h.campaigns.SubmitSession(r.Context(), *req.SessionID, req.NotifyEmail)
	} else {
		campaign, err = h.campaigns.Submit(r.Context(), req.Addresses, req.NotifyEmail)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, api.CampaignFromModel(campaign))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, service.NewErrInvalidRequest("invalid campaign id"))
		return
	}

	campaign, err := h.campaigns.GetStatus(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, api.CampaignFromModel(campaign))
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, service.NewErrInvalidRequest("invalid campaign id"))
		return
	}

	campaign, properties, err := h.campaigns.GetResults(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, api.ResultsFromModel(campaign, properties))
}

func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, service.NewErrInvalidRequest("invalid campaign id"))
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		h.respondError(w, service.NewErrInvalidRequest("invalid property position"))
		return
	}

	property, err := h.campaigns.GetProperty(r.Context(), id, position)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, api.PropertyFromModel(property))
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Errorf("failed to encode response: %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var notFound *service.ErrResourceNotFound
	var invalid *service.ErrInvalidRequest

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	default:
		h.log.Errorf("internal error: %v", err)
	}

	h.respond(w, status, api.Error{Message: err.Error()})
}
