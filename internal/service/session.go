package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/prospectgrid/prospectgrid/internal/cache"
	"github.com/prospectgrid/prospectgrid/internal/imagery"
)

// Session is a validated address batch waiting for submission. Sessions
// live in the cache as primary storage with a 24 h TTL; an expired session
// simply disappears.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Addresses []string  `json:"addresses"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Estimate is the address-count based cost breakdown for a session. Prices
// carry a 50% markup over the raw per-address API costs.
type Estimate struct {
	AddressCount int             `json:"address_count"`
	Tiers        map[string]Tier `json:"tiers"`
}

type Tier struct {
	Subtotal    float64 `json:"subtotal"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// per-address API costs in USD
const (
	geocodeCost    = 0.005
	imageCost      = 0.007
	imageCostMulti = 0.028
	scoringCost    = 0.000075
	estimateMarkup = 1.5
)

func (s *CampaignService) CreateSession(ctx context.Context, addresses []string) (*Session, error) {
	if err := s.validateAddresses(addresses); err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.New(),
		Addresses: addresses,
		CreatedAt: now,
		ExpiresAt: now.Add(cache.TTLSession),
	}

	if !s.cache.Enabled() {
		return nil, NewErrInvalidRequest("upload sessions require a configured cache backend")
	}
	s.cache.Set(ctx, cache.SessionKey(session.ID.String()), session, cache.TTLSession)
	return session, nil
}

func (s *CampaignService) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	if !s.cache.Get(ctx, cache.SessionKey(id.String()), &session) {
		return nil, NewErrSessionNotFound(id.String())
	}
	return &session, nil
}

// EstimateSession prices a session's address batch per capture tier.
func (s *CampaignService) EstimateSession(ctx context.Context, id uuid.UUID) (*Estimate, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return EstimateForAddresses(len(session.Addresses)), nil
}

// EstimateForAddresses prices an address batch per capture tier. The premium
// scoring tier prices one scoring call per captured angle.
func EstimateForAddresses(count int) *Estimate {
	n := float64(count)
	standard := n * (geocodeCost + imageCost)
	premium := n * (geocodeCost + imageCostMulti)
	scoringStandard := standard + n*scoringCost
	scoringPremium := premium + n*scoringCost*imagery.MultiAngleCount

	return &Estimate{
		AddressCount: count,
		Tiers: map[string]Tier{
			"imagery_standard": {
				Subtotal:    round2(standard),
				Price:       round2(standard * estimateMarkup),
				Description: "1 optimized angle",
			},
			"imagery_premium": {
				Subtotal:    round2(premium),
				Price:       round2(premium * estimateMarkup),
				Description: "multi-angle capture",
			},
			"scoring_standard": {
				Subtotal:    round2(scoringStandard),
				Price:       round2(scoringStandard * estimateMarkup),
				Description: "distress scoring, 1 angle",
			},
			"scoring_premium": {
				Subtotal:    round2(scoringPremium),
				Price:       round2(scoringPremium * estimateMarkup),
				Description: "distress scoring, multi-angle",
			},
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
