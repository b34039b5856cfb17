package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Campaign interface {
	Create(ctx context.Context, campaign model.Campaign) (*model.Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, processed, succeeded, failed int, progress float64) error
	SetCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	SetFailed(ctx context.Context, id uuid.UUID) error
	ListByStatus(ctx context.Context, status string) (model.CampaignList, error)
	InitialMigration(ctx context.Context) error
}

type CampaignStore struct {
	db *gorm.DB
}

// Make sure we conform to Campaign interface
var _ Campaign = (*CampaignStore)(nil)

func NewCampaignStore(db *gorm.DB) Campaign {
	return &CampaignStore{db: db}
}

func (s *CampaignStore) InitialMigration(ctx context.Context) error {
	return s.getDB(ctx).AutoMigrate(&model.Campaign{})
}

func (s *CampaignStore) Create(ctx context.Context, campaign model.Campaign) (*model.Campaign, error) {
	if result := s.getDB(ctx).Create(&campaign); result.Error != nil {
		return nil, fmt.Errorf("creating campaign: %w", result.Error)
	}
	return &campaign, nil
}

func (s *CampaignStore) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	campaign := model.Campaign{ID: id}
	result := s.getDB(ctx).First(&campaign)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying campaign: %w", result.Error)
	}
	return &campaign, nil
}

// UpdateProgress writes the aggregate counters of one completed property.
// Progress never goes backwards: the update is guarded against any value
// lower than what is already persisted.
func (s *CampaignStore) UpdateProgress(ctx context.Context, id uuid.UUID, processed, succeeded, failed int, progress float64) error {
	result := s.getDB(ctx).Model(&model.Campaign{}).
		Where("id = ? AND processed_count <= ?", id, processed).
		Updates(map[string]interface{}{
			"processed_count":  processed,
			"succeeded_count":  succeeded,
			"failed_count":     failed,
			"progress_percent": progress,
		})
	if result.Error != nil {
		return fmt.Errorf("updating campaign progress: %w", result.Error)
	}
	return nil
}

// SetCompleted moves a campaign from processing to completed. Guarded on the
// current status so the transition happens at most once even when two runs
// finish the same campaign.
func (s *CampaignStore) SetCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	campaign := model.Campaign{ID: id}
	result := s.getDB(ctx).Model(&campaign).Clauses(clause.Returning{}).
		Where("status = ?", model.CampaignStatusProcessing).
		Select("status", "progress_percent", "completed_at").
		Updates(model.Campaign{
			Status:          model.CampaignStatusCompleted,
			ProgressPercent: 100,
			CompletedAt:     &completedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("completing campaign: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *CampaignStore) SetFailed(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Model(&model.Campaign{ID: id}).Update("status", model.CampaignStatusFailed)
	if result.Error != nil {
		return fmt.Errorf("failing campaign: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *CampaignStore) ListByStatus(ctx context.Context, status string) (model.CampaignList, error) {
	var campaigns model.CampaignList
	result := s.getDB(ctx).Where("status = ?", status).Order("created_at").Find(&campaigns)
	if result.Error != nil {
		return nil, fmt.Errorf("listing campaigns: %w", result.Error)
	}
	return campaigns, nil
}

func (s *CampaignStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
