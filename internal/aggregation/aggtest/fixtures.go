// Package aggtest seeds storage with causes, campaigns and donations in a
// given lifecycle state, for aggregation tests.
package aggtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
)

// Cause stores an active cause owned by org accepting money and food.
func Cause(t *testing.T, stores storage.Stores, org domain.OrganizationID, title string, target int64, now time.Time) *catalog.Cause {
	t.Helper()
	c, err := catalog.NewCause(domain.NewCauseID(), org, catalog.CauseDetails{
		Title:         title,
		TargetAmount:  decimal.NewFromInt(target),
		AcceptedTypes: domain.ContributionTypes{domain.ContributionMoney, domain.ContributionFood},
	}, now)
	require.NoError(t, err)
	require.NoError(t, stores.Causes().Create(context.Background(), c))
	return c
}

// Campaign stores an active campaign owned by org and associates causes.
func Campaign(t *testing.T, stores storage.Stores, org domain.OrganizationID, now time.Time, causes ...*catalog.Cause) *catalog.Campaign {
	t.Helper()
	ctx := context.Background()
	k, err := catalog.NewCampaign(domain.NewCampaignID(), catalog.CampaignDetails{
		Title:           "Campaign",
		OrganizationIDs: []domain.OrganizationID{org},
		StartDate:       now.AddDate(0, -1, 0),
		EndDate:         now.AddDate(0, 1, 0),
		AcceptedTypes:   domain.ContributionTypes{domain.ContributionMoney, domain.ContributionFood},
	}, now)
	require.NoError(t, err)
	k.ApplyStatus(catalog.CampaignStatusActive, now)
	require.NoError(t, stores.Campaigns().Create(ctx, k))
	for _, c := range causes {
		a, err := catalog.NewAssociation(c, k, now)
		require.NoError(t, err)
		require.NoError(t, stores.Associations().Create(ctx, a))
	}
	return k
}

// Money is a monetary contribution of amount (a decimal string).
func Money(t *testing.T, amount string) domain.Contribution {
	t.Helper()
	c, err := domain.NewMoneyContribution(decimal.RequireFromString(amount))
	require.NoError(t, err)
	return c
}

// Food is an in-kind food contribution of qty units.
func Food(t *testing.T, qty int64) domain.Contribution {
	t.Helper()
	c, err := domain.NewItemContribution(domain.ContributionFood, qty, "kg")
	require.NoError(t, err)
	return c
}

// Donation stores a donation from a fresh donor that has been walked to
// status, with every transition stamped at at.
func Donation(t *testing.T, stores storage.Stores, cause *catalog.Cause, c domain.Contribution, status donation.Status, at time.Time) *donation.Donation {
	t.Helper()
	return DonationFrom(t, stores, domain.DonorID(uuid.New()), cause, c, status, at)
}

// DonationFrom is Donation for a specific donor.
func DonationFrom(t *testing.T, stores storage.Stores, donor domain.DonorID, cause *catalog.Cause, c domain.Contribution, status donation.Status, at time.Time) *donation.Donation {
	t.Helper()
	d, err := donation.NewDonation(domain.NewDonationID(), donor, cause.ID, cause.OrganizationID, c, at)
	require.NoError(t, err)

	var path []donation.Status
	switch status {
	case donation.StatusApproved:
		path = []donation.Status{donation.StatusApproved}
	case donation.StatusReceived:
		path = []donation.Status{donation.StatusApproved, donation.StatusReceived}
	case donation.StatusConfirmed:
		path = []donation.Status{donation.StatusApproved, donation.StatusReceived, donation.StatusConfirmed}
	case donation.StatusCancelled:
		path = []donation.Status{donation.StatusCancelled}
	}
	for _, next := range path {
		var refs *donation.ReceiptRefs
		if next == donation.StatusReceived {
			refs = &donation.ReceiptRefs{ImageRef: "mem://image", DocumentRef: "mem://doc", DocumentNumber: "N"}
		}
		require.NoError(t, d.ApplyTransition(next, refs, at))
	}
	require.NoError(t, stores.Donations().Create(context.Background(), d))
	return d
}
