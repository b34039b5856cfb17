// Package service implements the campaign operations behind the HTTP
// boundary: submission, status, results, and upload sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectgrid/prospectgrid/internal/cache"
	"github.com/prospectgrid/prospectgrid/internal/jobs"
	"github.com/prospectgrid/prospectgrid/internal/store"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
)

type CampaignService struct {
	store        store.Store
	cache        *cache.Cache
	enqueuer     jobs.Enqueuer
	maxAddresses int
	log          *zap.SugaredLogger
}

func NewCampaignService(s store.Store, c *cache.Cache, enqueuer jobs.Enqueuer, maxAddresses int) *CampaignService {
	return &CampaignService{
		store:        s,
		cache:        c,
		enqueuer:     enqueuer,
		maxAddresses: maxAddresses,
		log:          zap.S().Named("service"),
	}
}

// Submit creates a campaign with one pending property per address and
// enqueues its processing job. The caller is expected to have validated and
// deduplicated the batch.
func (s *CampaignService) Submit(ctx context.Context, addresses []string, notifyEmail string) (*model.Campaign, error) {
	if err := s.validateAddresses(addresses); err != nil {
		return nil, err
	}

	campaignID := uuid.New()
	properties := make([]model.Property, 0, len(addresses))
	for i, address := range addresses {
		properties = append(properties, model.Property{
			ID:         uuid.New(),
			CampaignID: campaignID,
			Position:   i + 1,
			Address:    address,
			Status:     model.PropertyStatusPending,
		})
	}

	txCtx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening transaction: %w", err)
	}

	campaign, err := s.store.Campaign().Create(txCtx, model.Campaign{
		ID:              campaignID,
		Status:          model.CampaignStatusProcessing,
		TotalProperties: len(addresses),
		NotifyEmail:     notifyEmail,
	})
	if err != nil {
		_, _ = store.Rollback(txCtx)
		return nil, err
	}

	if err := s.store.Property().CreateBatch(txCtx, properties); err != nil {
		_, _ = store.Rollback(txCtx)
		return nil, err
	}

	if _, err := store.Commit(txCtx); err != nil {
		return nil, fmt.Errorf("committing campaign: %w", err)
	}

	jobID, err := s.enqueuer.EnqueueCampaign(ctx, campaignID)
	if err != nil {
		// the campaign exists but will never run; fail it so status reflects
		// reality instead of a forever-processing batch
		if failErr := s.store.Campaign().SetFailed(ctx, campaignID); failErr != nil {
			s.log.Errorw("failed to mark unqueued campaign failed", "campaign_id", campaignID, "error", failErr)
		}
		return nil, fmt.Errorf("enqueueing campaign job: %w", err)
	}

	s.log.Infow("campaign submitted", "campaign_id", campaignID, "addresses", len(addresses), "job_id", jobID)
	return campaign, nil
}

// SubmitSession submits a previously created upload session.
func (s *CampaignService) SubmitSession(ctx context.Context, sessionID uuid.UUID, notifyEmail string) (*model.Campaign, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	campaign, err := s.Submit(ctx, session.Addresses, notifyEmail)
	if err != nil {
		return nil, err
	}

	// a session feeds at most one campaign
	s.cache.Delete(ctx, cache.SessionKey(sessionID.String()))
	return campaign, nil
}

func (s *CampaignService) GetStatus(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	campaign, err := s.store.Campaign().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrCampaignNotFound(id.String())
		}
		return nil, err
	}
	return campaign, nil
}

// GetResults returns the campaign and its properties in submission order.
func (s *CampaignService) GetResults(ctx context.Context, id uuid.UUID) (*model.Campaign, model.PropertyList, error) {
	campaign, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	properties, err := s.store.Property().ListByCampaign(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return campaign, properties, nil
}

// GetProperty returns one property of a campaign by its stable ordinal.
func (s *CampaignService) GetProperty(ctx context.Context, campaignID uuid.UUID, position int) (*model.Property, error) {
	_, properties, err := s.GetResults(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	for i := range properties {
		if properties[i].Position == position {
			return &properties[i], nil
		}
	}
	return nil, NewErrPropertyNotFound(fmt.Sprintf("%s/%d", campaignID, position))
}

func (s *CampaignService) validateAddresses(addresses []string) error {
	if len(addresses) == 0 {
		return NewErrInvalidRequest("at least one address is required")
	}
	if s.maxAddresses > 0 && len(addresses) > s.maxAddresses {
		return NewErrInvalidRequest("at most %d addresses per campaign", s.maxAddresses)
	}
	for i, address := range addresses {
		if strings.TrimSpace(address) == "" {
			return NewErrInvalidRequest("address %d is empty", i+1)
		}
	}
	return nil
}
