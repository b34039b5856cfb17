package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
	"gorm.io/gorm"
)

type Property interface {
	CreateBatch(ctx context.Context, properties []model.Property) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) (model.PropertyList, error)
	ListPending(ctx context.Context, campaignID uuid.UUID) (model.PropertyList, error)
	SetResult(ctx context.Context, id uuid.UUID, status string, score *float64, errMsg *string, result []byte) error
	InitialMigration(ctx context.Context) error
}

type PropertyStore struct {
	db *gorm.DB
}

// Make sure we conform to Property interface
var _ Property = (*PropertyStore)(nil)

func NewPropertyStore(db *gorm.DB) Property {
	return &PropertyStore{db: db}
}

func (s *PropertyStore) InitialMigration(ctx context.Context) error {
	return s.getDB(ctx).AutoMigrate(&model.Property{})
}

func (s *PropertyStore) CreateBatch(ctx context.Context, properties []model.Property) error {
	if len(properties) == 0 {
		return nil
	}
	if result := s.getDB(ctx).Create(&properties); result.Error != nil {
		return fmt.Errorf("creating properties: %w", result.Error)
	}
	return nil
}

func (s *PropertyStore) ListByCampaign(ctx context.Context, campaignID uuid.UUID) (model.PropertyList, error) {
	var properties model.PropertyList
	result := s.getDB(ctx).Where("campaign_id = ?", campaignID).Order("position").Find(&properties)
	if result.Error != nil {
		return nil, fmt.Errorf("listing properties: %w", result.Error)
	}
	return properties, nil
}

func (s *PropertyStore) ListPending(ctx context.Context, campaignID uuid.UUID) (model.PropertyList, error) {
	var properties model.PropertyList
	result := s.getDB(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, model.PropertyStatusPending).
		Order("position").
		Find(&properties)
	if result.Error != nil {
		return nil, fmt.Errorf("listing pending properties: %w", result.Error)
	}
	return properties, nil
}

// SetResult moves a property from pending to a terminal status. The guard on
// the current status makes the transition happen at most once, which is what
// keeps re-delivered jobs idempotent: a second attempt affects zero rows.
func (s *PropertyStore) SetResult(ctx context.Context, id uuid.UUID, status string, score *float64, errMsg *string, result []byte) error {
	res := s.getDB(ctx).Model(&model.Property{}).
		Where("id = ? AND status = ?", id, model.PropertyStatusPending).
		Updates(map[string]interface{}{
			"status": status,
			"score":  score,
			"error":  errMsg,
			"result": result,
		})
	if res.Error != nil {
		return fmt.Errorf("updating property result: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PropertyStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
