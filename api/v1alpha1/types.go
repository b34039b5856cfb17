// Package v1alpha1 defines the wire types of the HTTP API.
package v1alpha1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Error struct {
	Message string `json:"message"`
}

type Health struct {
	Status string `json:"status"`
}

type CreateSessionRequest struct {
	Addresses []string `json:"addresses"`
}

type Session struct {
	ID           uuid.UUID `json:"id"`
	AddressCount int       `json:"address_count"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type EstimateTier struct {
	Subtotal    float64 `json:"subtotal"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type Estimate struct {
	AddressCount int                     `json:"address_count"`
	Tiers        map[string]EstimateTier `json:"tiers"`
}

type CreateCampaignRequest struct {
	// either a previously created session or an inline address batch
	SessionID   *uuid.UUID `json:"session_id,omitempty"`
	Addresses   []string   `json:"addresses,omitempty"`
	NotifyEmail string     `json:"notify_email,omitempty"`
}

type Campaign struct {
	ID              uuid.UUID  `json:"id"`
	Status          string     `json:"status"`
	ProgressPercent float64    `json:"progress_percent"`
	Total           int        `json:"total"`
	Processed       int        `json:"processed"`
	Succeeded       int        `json:"succeeded"`
	Failed          int        `json:"failed"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type Property struct {
	ID       uuid.UUID       `json:"id"`
	Position int             `json:"position"`
	Address  string          `json:"address"`
	Status   string          `json:"status"`
	Score    *float64        `json:"score,omitempty"`
	Error    *string         `json:"error,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

type CampaignResults struct {
	Campaign
	Properties []Property `json:"properties"`
}
