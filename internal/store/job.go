package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river/rivertype"
	"gorm.io/gorm"
)

// Job exposes the read-only view of River's job table that the recovery
// scan needs: whether a campaign still has a live queue entry.
type Job interface {
	GetActiveJob(ctx context.Context, campaignID uuid.UUID) (*int64, error)
}

type JobStore struct {
	db *gorm.DB
}

var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

// GetActiveJob finds a live River job by campaignID in the job args.
// Returns nil if no active job references the campaign.
func (s *JobStore) GetActiveJob(ctx context.Context, campaignID uuid.UUID) (*int64, error) {
	var jobID int64

	err := s.getDB(ctx).
		Table("river_job").
		Select("id").
		Where("state IN ?", []rivertype.JobState{
			rivertype.JobStateAvailable,
			rivertype.JobStateRunning,
			rivertype.JobStateRetryable,
			rivertype.JobStateScheduled,
		}).
		Where("args->>'campaign_id' = ?", campaignID.String()).
		Order("id DESC").
		Limit(1).
		Scan(&jobID).Error

	if err != nil {
		return nil, err
	}

	if jobID == 0 {
		return nil, nil
	}

	return &jobID, nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
