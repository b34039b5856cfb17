package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectgrid/prospectgrid/internal/store"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
)

// Enqueuer re-inserts campaign jobs. Satisfied by *Client.
type Enqueuer interface {
	EnqueueCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)
}

// RecoverOrphanedCampaigns re-enqueues campaigns that are stuck in
// processing with no live queue entry, which happens when a worker dies
// mid-job after the queue gave up on it. Run at worker startup. Safe to run
// concurrently with normal operation: re-delivered jobs resume idempotently.
func RecoverOrphanedCampaigns(ctx context.Context, s store.Store, enqueuer Enqueuer) error {
	log := zap.S().Named("recovery")

	campaigns, err := s.Campaign().ListByStatus(ctx, model.CampaignStatusProcessing)
	if err != nil {
		return fmt.Errorf("listing processing campaigns: %w", err)
	}

	recovered := 0
	for _, campaign := range campaigns {
		jobID, err := s.Job().GetActiveJob(ctx, campaign.ID)
		if err != nil {
			log.Errorw("active job lookup failed", "campaign_id", campaign.ID, "error", err)
			continue
		}
		if jobID != nil {
			continue
		}

		newJobID, err := enqueuer.EnqueueCampaign(ctx, campaign.ID)
		if err != nil {
			log.Errorw("re-enqueue failed", "campaign_id", campaign.ID, "error", err)
			continue
		}

		log.Infow("re-enqueued orphaned campaign", "campaign_id", campaign.ID, "job_id", newJobID)
		recovered++
	}

	if recovered > 0 {
		log.Infof("recovered %d orphaned campaigns", recovered)
	}
	return nil
}
