package models

import (
	"time"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// Association links a cause to a campaign. The (CauseID, CampaignID) pair is unique.
type Association struct {
	CauseID    domain.CauseID    `json:"cause_id"`
	CampaignID domain.CampaignID `json:"campaign_id"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewAssociation validates that cause and campaign may be linked: they must
// share an accepted contribution type and at least one owning organization.
func NewAssociation(cause *Cause, campaign *Campaign, now time.Time) (*Association, error) {
	if !cause.AcceptedTypes.Intersects(campaign.AcceptedTypes) {
		return nil, dErrors.New(dErrors.CodeInvalidAssociation,
			"cause and campaign accept no common contribution type")
	}
	if !campaign.OwnedBy(cause.OrganizationID) {
		return nil, dErrors.New(dErrors.CodeInvalidAssociation,
			"cause organization does not own the campaign")
	}
	if campaign.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvalidAssociation,
			"campaign is "+campaign.Status.String())
	}
	return &Association{
		CauseID:    cause.ID,
		CampaignID: campaign.ID,
		CreatedAt:  now,
	}, nil
}

// IsVisible reports whether a cause is donor-visible at now: it must be
// active and associated with at least one campaign that is active and whose
// window contains now. Visibility is always computed, never stored.
func IsVisible(cause *Cause, campaigns []*Campaign, now time.Time) bool {
	if cause == nil || !cause.Active {
		return false
	}
	for _, c := range campaigns {
		if c != nil && c.IsLive(now) {
			return true
		}
	}
	return false
}
