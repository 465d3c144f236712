package service

import (
	"context"
	"time"

	donation "donorhub/internal/donation/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListFilter narrows ListDonations. Actor scope is applied on top.
type ListFilter struct {
	CauseID     *domain.CauseID
	Statuses    []donation.Status
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
	Offset      int
}

func loadDonation(ctx context.Context, stores storage.Stores, id domain.DonationID) (*donation.Donation, error) {
	d, err := stores.Donations().Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation")
	}
	return d, nil
}

// loadVisible loads a donation the actor may read. Donations the actor may
// not see are reported as missing.
func (s *Service) loadVisible(ctx context.Context, stores storage.Stores, actor domain.Actor, id domain.DonationID) (*donation.Donation, error) {
	d, err := loadDonation(ctx, stores, id)
	if err != nil {
		return nil, err
	}
	if !d.IsVisibleTo(actor) {
		return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
	}
	return d, nil
}

func (s *Service) GetDonation(ctx context.Context, actor domain.Actor, id domain.DonationID) (*donation.Donation, error) {
	return s.loadVisible(ctx, s.db, actor, id)
}

// GetReceipt returns the receipt references of a received donation, or
// tells the caller whether one may still appear.
func (s *Service) GetReceipt(ctx context.Context, actor domain.Actor, id domain.DonationID) (donation.ReceiptRefs, error) {
	d, err := s.loadVisible(ctx, s.db, actor, id)
	if err != nil {
		return donation.ReceiptRefs{}, err
	}
	return d.Receipt()
}

// ListDonations returns the donor's own donations, or the donations made to
// the organization's causes, newest first.
func (s *Service) ListDonations(ctx context.Context, actor domain.Actor, filter ListFilter) ([]*donation.Donation, error) {
	query := storage.DonationFilter{
		CauseID:     filter.CauseID,
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      max(filter.Offset, 0),
	}
	if query.Limit <= 0 {
		query.Limit = defaultPageSize
	}
	query.Limit = min(query.Limit, maxPageSize)

	switch {
	case actor.IsDonor():
		donor := actor.DonorID
		query.DonorID = &donor
	case actor.IsOrganization():
		org := actor.OrganizationID
		query.OrganizationID = &org
	case actor.IsSystem():
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "unknown actor")
	}

	donations, err := s.db.Donations().List(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return donations, nil
}
