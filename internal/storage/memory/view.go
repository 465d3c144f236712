package memory

import (
	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	"donorhub/pkg/domain"
)

// Point reads check the overlay first. Returned pointers are shared and must
// be cloned before leaving the package.

func (v *view) cause(id domain.CauseID) (*catalog.Cause, bool) {
	if v.tx != nil {
		if c, ok := v.tx.causes[id]; ok {
			return c, c != nil
		}
	}
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	c, ok := v.db.causes[id]
	return c, ok
}

func (v *view) campaign(id domain.CampaignID) (*catalog.Campaign, bool) {
	if v.tx != nil {
		if c, ok := v.tx.campaigns[id]; ok {
			return c, c != nil
		}
	}
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	c, ok := v.db.campaigns[id]
	return c, ok
}

func (v *view) donation(id domain.DonationID) (*donation.Donation, bool) {
	if v.tx != nil {
		if d, ok := v.tx.donations[id]; ok {
			return d, d != nil
		}
	}
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	d, ok := v.db.donations[id]
	return d, ok
}

func (v *view) associations() map[assocKey]*catalog.Association {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	return overlay(v.db.assocs, v.stagedAssocs())
}

func (v *view) donationsSnapshot() map[domain.DonationID]*donation.Donation {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	return overlay(v.db.donations, v.stagedDonations())
}

func (v *view) stagedCauses() map[domain.CauseID]*catalog.Cause {
	if v.tx == nil {
		return nil
	}
	return v.tx.causes
}

func (v *view) stagedCampaigns() map[domain.CampaignID]*catalog.Campaign {
	if v.tx == nil {
		return nil
	}
	return v.tx.campaigns
}

func (v *view) stagedAssocs() map[assocKey]*catalog.Association {
	if v.tx == nil {
		return nil
	}
	return v.tx.assocs
}

func (v *view) stagedDonations() map[domain.DonationID]*donation.Donation {
	if v.tx == nil {
		return nil
	}
	return v.tx.donations
}

func (v *view) committedVersion(id domain.DonationID) int64 {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	if d, ok := v.db.donations[id]; ok {
		return d.Version
	}
	return 0
}
