package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	CampaignStatusProcessing = "processing"
	CampaignStatusCompleted  = "completed"
	CampaignStatusFailed     = "failed"
)

type Campaign struct {
	ID              uuid.UUID `gorm:"primaryKey"`
	Status          string    `gorm:"not null;index"`
	ProgressPercent float64   `gorm:"not null;default:0"`
	TotalProperties int       `gorm:"not null"`
	ProcessedCount  int       `gorm:"not null;default:0"`
	SucceededCount  int       `gorm:"not null;default:0"`
	FailedCount     int       `gorm:"not null;default:0"`
	NotifyEmail     string
	Properties      []Property `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

type CampaignList []Campaign

func (c Campaign) String() string {
	val, _ := json.Marshal(c)
	return string(val)
}
