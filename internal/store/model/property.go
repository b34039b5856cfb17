package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	PropertyStatusPending   = "pending"
	PropertyStatusCompleted = "completed"
	PropertyStatusFailed    = "failed"
)

// Property is one address's record within a campaign. The set of properties
// for a campaign is fixed at submission time; only status, score, error and
// result move, and exactly once, from pending to a terminal state.
type Property struct {
	ID         uuid.UUID `gorm:"primaryKey"`
	CampaignID uuid.UUID `gorm:"not null;index"`
	Position   int       `gorm:"not null"`
	Address    string    `gorm:"not null"`
	Status     string    `gorm:"not null"`
	Score      *float64
	Error      *string
	Result     []byte `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type PropertyList []Property

// IsTerminal reports whether the property has already been processed.
func (p Property) IsTerminal() bool {
	return p.Status != PropertyStatusPending
}
