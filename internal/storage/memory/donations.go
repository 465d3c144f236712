package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	donation "donorhub/internal/donation/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
)

type donationStore struct{ v *view }

func (s donationStore) Create(_ context.Context, d *donation.Donation) error {
	return s.v.write(func(tx *txState) error {
		if _, ok := s.v.donation(d.ID); ok {
			return storage.ErrAlreadyUsed
		}
		tx.donations[d.ID] = cloneDonation(d)
		tx.baseVersions[d.ID] = 0
		return nil
	})
}

func (s donationStore) Get(_ context.Context, id domain.DonationID) (*donation.Donation, error) {
	d, ok := s.v.donation(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneDonation(d), nil
}

func (s donationStore) Update(_ context.Context, d *donation.Donation, expectedVersion int64) error {
	return s.v.write(func(tx *txState) error {
		cur, ok := s.v.donation(d.ID)
		if !ok {
			return storage.ErrNotFound
		}
		if cur.Version != expectedVersion {
			return storage.ErrConflict
		}
		if _, touched := tx.baseVersions[d.ID]; !touched {
			tx.baseVersions[d.ID] = s.v.committedVersion(d.ID)
		}
		tx.donations[d.ID] = cloneDonation(d)
		return nil
	})
}

func (s donationStore) List(_ context.Context, f storage.DonationFilter) ([]*donation.Donation, error) {
	out := make([]*donation.Donation, 0)
	for _, d := range s.v.donationsSnapshot() {
		if matchDonation(d, f) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b *donation.Donation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*donation.Donation{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	for i, d := range out {
		out[i] = cloneDonation(d)
	}
	return out, nil
}

func matchDonation(d *donation.Donation, f storage.DonationFilter) bool {
	switch {
	case f.DonorID != nil && d.DonorID != *f.DonorID:
		return false
	case f.OrganizationID != nil && d.OrganizationID != *f.OrganizationID:
		return false
	case f.CauseID != nil && d.CauseID != *f.CauseID:
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, d.Status):
		return false
	case !f.CreatedFrom.IsZero() && d.CreatedAt.Before(f.CreatedFrom):
		return false
	case !f.CreatedTo.IsZero() && !d.CreatedAt.Before(f.CreatedTo):
		return false
	}
	return true
}

func (s donationStore) CountOpen(_ context.Context, causeID domain.CauseID) (int, error) {
	n := 0
	for _, d := range s.v.donationsSnapshot() {
		if d.CauseID == causeID && d.Status != donation.StatusCancelled {
			n++
		}
	}
	return n, nil
}

func (s donationStore) DistinctDonors(_ context.Context, causeID domain.CauseID) (int, error) {
	donors := make(map[domain.DonorID]struct{})
	for _, d := range s.v.donationsSnapshot() {
		if d.CauseID == causeID && d.Status != donation.StatusCancelled {
			donors[d.DonorID] = struct{}{}
		}
	}
	return len(donors), nil
}

type rollupKey struct {
	month time.Time
	cause domain.CauseID
	org   domain.OrganizationID
	typ   domain.ContributionType
}

func (s donationStore) Rollup(_ context.Context, q storage.RollupQuery) ([]storage.RollupRow, error) {
	groups := make(map[rollupKey]*storage.RollupRow)
	for _, d := range s.v.donationsSnapshot() {
		if !d.Status.CountsTowardRaised() || d.ReceivedAt == nil {
			continue
		}
		if q.CauseID != nil && d.CauseID != *q.CauseID {
			continue
		}
		if q.OrganizationID != nil && d.OrganizationID != *q.OrganizationID {
			continue
		}
		if q.Type != nil && d.Type != *q.Type {
			continue
		}
		if !q.ReceivedFrom.IsZero() && d.ReceivedAt.Before(q.ReceivedFrom) {
			continue
		}
		if !q.ReceivedTo.IsZero() && !d.ReceivedAt.Before(q.ReceivedTo) {
			continue
		}

		key := rollupKey{typ: d.Type}
		if q.GroupBy.Month {
			key.month = storage.MonthStart(*d.ReceivedAt)
		}
		if q.GroupBy.Cause {
			key.cause = d.CauseID
		}
		if q.GroupBy.Organization {
			key.org = d.OrganizationID
		}
		row, ok := groups[key]
		if !ok {
			row = &storage.RollupRow{
				Month:          key.month,
				CauseID:        key.cause,
				OrganizationID: key.org,
				Type:           key.typ,
				Amount:         decimal.Zero,
				Quantity:       decimal.Zero,
			}
			groups[key] = row
		}
		row.Count++
		row.Amount = row.Amount.Add(d.Amount)
		row.Quantity = row.Quantity.Add(decimal.NewFromInt(d.Quantity))
	}

	out := make([]storage.RollupRow, 0, len(groups))
	for _, row := range groups {
		out = append(out, *row)
	}
	slices.SortFunc(out, compareRollupRows)
	return out, nil
}

func compareRollupRows(a, b storage.RollupRow) int {
	if c := a.Month.Compare(b.Month); c != 0 {
		return c
	}
	if c := strings.Compare(a.CauseID.String(), b.CauseID.String()); c != 0 {
		return c
	}
	if c := strings.Compare(a.OrganizationID.String(), b.OrganizationID.String()); c != 0 {
		return c
	}
	return strings.Compare(string(a.Type), string(b.Type))
}
