package v1alpha1

import (
	"github.com/prospectgrid/prospectgrid/internal/service"
	"github.com/prospectgrid/prospectgrid/internal/store/model"
)

func CampaignFromModel(campaign *model.Campaign) Campaign {
	return Campaign{
		ID:              campaign.ID,
		Status:          campaign.Status,
		ProgressPercent: campaign.ProgressPercent,
		Total:           campaign.TotalProperties,
		Processed:       campaign.ProcessedCount,
		Succeeded:       campaign.SucceededCount,
		Failed:          campaign.FailedCount,
		CreatedAt:       campaign.CreatedAt,
		CompletedAt:     campaign.CompletedAt,
	}
}

func PropertyFromModel(property *model.Property) Property {
	return Property{
		ID:       property.ID,
		Position: property.Position,
		Address:  property.Address,
		Status:   property.Status,
		Score:    property.Score,
		Error:    property.Error,
		Result:   property.Result,
	}
}

func ResultsFromModel(campaign *model.Campaign, properties model.PropertyList) CampaignResults {
	results := CampaignResults{
		Campaign:   CampaignFromModel(campaign),
		Properties: make([]Property, 0, len(properties)),
	}
	for i := range properties {
		results.Properties = append(results.Properties, PropertyFromModel(&properties[i]))
	}
	return results
}

func SessionFromService(session *service.Session) Session {
	return Session{
		ID:           session.ID,
		AddressCount: len(session.Addresses),
		CreatedAt:    session.CreatedAt,
		ExpiresAt:    session.ExpiresAt,
	}
}

func EstimateFromService(estimate *service.Estimate) Estimate {
	tiers := make(map[string]EstimateTier, len(estimate.Tiers))
	for name, tier := range estimate.Tiers {
		tiers[name] = EstimateTier(tier)
	}
	return Estimate{
		AddressCount: estimate.AddressCount,
		Tiers:        tiers,
	}
}
