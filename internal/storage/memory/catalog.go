package memory

import (
	"context"
	"slices"
	"strings"

	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
)

type causeStore struct{ v *view }

func (s causeStore) Create(_ context.Context, c *catalog.Cause) error {
	return s.v.write(func(tx *txState) error {
		if _, ok := s.v.cause(c.ID); ok {
			return storage.ErrAlreadyUsed
		}
		tx.causes[c.ID] = cloneCause(c)
		return nil
	})
}

func (s causeStore) Get(_ context.Context, id domain.CauseID) (*catalog.Cause, error) {
	c, ok := s.v.cause(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneCause(c), nil
}

func (s causeStore) Update(_ context.Context, c *catalog.Cause) error {
	return s.v.write(func(tx *txState) error {
		if _, ok := s.v.cause(c.ID); !ok {
			return storage.ErrNotFound
		}
		tx.causes[c.ID] = cloneCause(c)
		return nil
	})
}

func (s causeStore) Delete(_ context.Context, id domain.CauseID) error {
	return s.v.write(func(tx *txState) error {
		if _, ok := s.v.cause(id); !ok {
			return storage.ErrNotFound
		}
		tx.causes[id] = nil
		for key := range s.v.associations() {
			if key.cause == id {
				tx.assocs[key] = nil
			}
		}
		for did, d := range s.v.donationsSnapshot() {
			if d.CauseID == id {
				tx.donations[did] = nil
			}
		}
		return nil
	})
}

func (s causeStore) List(_ context.Context, f storage.CauseFilter) ([]*catalog.Cause, error) {
	s.v.db.mu.RLock()
	all := overlay(s.v.db.causes, s.v.stagedCauses())
	s.v.db.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(f.Query))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	out := make([]*catalog.Cause, 0, len(all))
	for _, c := range all {
		if f.OrganizationID != nil && c.OrganizationID != *f.OrganizationID {
			continue
		}
		if f.ActiveOnly && !c.Active {
			continue
		}
		if tag != "" && !slices.Contains(c.Tags, tag) {
			continue
		}
		if f.Type != "" && !c.Accepts(f.Type) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(c.Title), query) {
			continue
		}
		out = append(out, cloneCause(c))
	}
	slices.SortFunc(out, func(a, b *catalog.Cause) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

type campaignStore struct{ v *view }

func (s campaignStore) Create(_ context.Context, c *catalog.Campaign) error {
	return s.v.write(func(tx *txState) error {
		if _, ok := s.v.campaign(c.ID); ok {
			return storage.ErrAlreadyUsed
		}
		tx.campaigns[c.ID] = cloneCampaign(c)
		return nil
	})
}

func (s campaignStore) Get(_ context.Context, id domain.CampaignID) (*catalog.Campaign, error) {
	c, ok := s.v.campaign(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneCampaign(c), nil
}

func (s campaignStore) Update(_ context.Context, c *catalog.Campaign) error {
	return s.v.write(func(tx *txState) error {
		if _, ok := s.v.campaign(c.ID); !ok {
			return storage.ErrNotFound
		}
		tx.campaigns[c.ID] = cloneCampaign(c)
		return nil
	})
}

func (s campaignStore) List(_ context.Context, f storage.CampaignFilter) ([]*catalog.Campaign, error) {
	s.v.db.mu.RLock()
	all := overlay(s.v.db.campaigns, s.v.stagedCampaigns())
	s.v.db.mu.RUnlock()

	out := make([]*catalog.Campaign, 0, len(all))
	for _, c := range all {
		if f.OrganizationID != nil && !c.OwnedBy(*f.OrganizationID) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, c.Status) {
			continue
		}
		out = append(out, cloneCampaign(c))
	}
	slices.SortFunc(out, func(a, b *catalog.Campaign) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s campaignStore) ListByCauses(_ context.Context, causeIDs []domain.CauseID) (map[domain.CauseID][]*catalog.Campaign, error) {
	s.v.db.mu.RLock()
	campaigns := overlay(s.v.db.campaigns, s.v.stagedCampaigns())
	assocs := overlay(s.v.db.assocs, s.v.stagedAssocs())
	s.v.db.mu.RUnlock()

	out := make(map[domain.CauseID][]*catalog.Campaign, len(causeIDs))
	for key := range assocs {
		if !slices.Contains(causeIDs, key.cause) {
			continue
		}
		if c, ok := campaigns[key.campaign]; ok {
			out[key.cause] = append(out[key.cause], cloneCampaign(c))
		}
	}
	return out, nil
}

type associationStore struct{ v *view }

func (s associationStore) Create(_ context.Context, a *catalog.Association) error {
	return s.v.write(func(tx *txState) error {
		key := assocKey{cause: a.CauseID, campaign: a.CampaignID}
		if _, ok := s.v.associations()[key]; ok {
			return storage.ErrAlreadyUsed
		}
		tx.assocs[key] = cloneAssociation(a)
		tx.assocCreated[key] = true
		return nil
	})
}

func (s associationStore) Delete(_ context.Context, causeID domain.CauseID, campaignID domain.CampaignID) error {
	return s.v.write(func(tx *txState) error {
		key := assocKey{cause: causeID, campaign: campaignID}
		if _, ok := s.v.associations()[key]; !ok {
			return storage.ErrNotFound
		}
		tx.assocs[key] = nil
		delete(tx.assocCreated, key)
		return nil
	})
}

func (s associationStore) ListByCampaign(_ context.Context, campaignID domain.CampaignID) ([]*catalog.Association, error) {
	return s.list(func(k assocKey) bool { return k.campaign == campaignID }), nil
}

func (s associationStore) ListByCause(_ context.Context, causeID domain.CauseID) ([]*catalog.Association, error) {
	return s.list(func(k assocKey) bool { return k.cause == causeID }), nil
}

func (s associationStore) list(match func(assocKey) bool) []*catalog.Association {
	out := make([]*catalog.Association, 0)
	for key, a := range s.v.associations() {
		if match(key) {
			out = append(out, cloneAssociation(a))
		}
	}
	slices.SortFunc(out, func(a, b *catalog.Association) int {
		if c := strings.Compare(a.CauseID.String(), b.CauseID.String()); c != 0 {
			return c
		}
		return strings.Compare(a.CampaignID.String(), b.CampaignID.String())
	})
	return out
}
