package store

import (
	"context"

	"github.com/prospectgrid/prospectgrid/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Campaign() Campaign
	Property() Property
	Job() Job
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db       *gorm.DB
	campaign Campaign
	property Property
	job      Job
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		campaign: NewCampaignStore(db),
		property: NewPropertyStore(db),
		job:      NewJobStore(db),
		db:       db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Campaign() Campaign {
	return s.campaign
}

func (s *DataStore) Property() Property {
	return s.property
}

func (s *DataStore) Job() Job {
	return s.job
}

// InitialMigration creates the campaign/property schema. River's own tables
// are handled by pkg/migrations.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Campaign{}, &model.Property{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
