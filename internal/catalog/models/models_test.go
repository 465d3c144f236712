package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

var (
	now   = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	orgA  = domain.OrganizationID(uuid.New())
	orgB  = domain.OrganizationID(uuid.New())
	money = domain.ContributionTypes{domain.ContributionMoney}
	food  = domain.ContributionTypes{domain.ContributionFood}
)

func newCause(t *testing.T, org domain.OrganizationID, accepted domain.ContributionTypes) *Cause {
	t.Helper()
	c, err := NewCause(domain.NewCauseID(), org, CauseDetails{
		Title:         "Winter coats",
		TargetAmount:  decimal.NewFromInt(1000),
		AcceptedTypes: accepted,
	}, now)
	require.NoError(t, err)
	return c
}

func newCampaign(t *testing.T, accepted domain.ContributionTypes, owners ...domain.OrganizationID) *Campaign {
	t.Helper()
	c, err := NewCampaign(domain.NewCampaignID(), CampaignDetails{
		Title:           "Spring drive",
		OrganizationIDs: owners,
		StartDate:       now.AddDate(0, 0, -1),
		EndDate:         now.AddDate(0, 0, 30),
		AcceptedTypes:   accepted,
	}, now)
	require.NoError(t, err)
	return c
}

func TestNewCause(t *testing.T) {
	c, err := NewCause(domain.NewCauseID(), orgA, CauseDetails{
		Title:         "  Books   for kids ",
		Tags:          []string{"Education", "education ", ""},
		AcceptedTypes: domain.ContributionTypes{domain.ContributionBooks, domain.ContributionBooks},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "Books for kids", c.Title)
	assert.Equal(t, []string{"education"}, c.Tags)
	assert.Equal(t, domain.ContributionTypes{domain.ContributionBooks}, c.AcceptedTypes)
	assert.True(t, c.TargetAmount.IsZero())
	assert.True(t, c.Active)

	_, err = NewCause(domain.NewCauseID(), orgA, CauseDetails{Title: "x", TargetAmount: decimal.NewFromInt(-1), AcceptedTypes: money}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))

	_, err = NewCause(domain.NewCauseID(), orgA, CauseDetails{Title: "x", TargetAmount: decimal.New(1, 15), AcceptedTypes: money}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount), "target beyond column precision")

	_, err = NewCause(domain.NewCauseID(), orgA, CauseDetails{Title: "x"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewCause(domain.NewCauseID(), orgA, CauseDetails{Title: "   ", AcceptedTypes: money}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCampaignStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to CampaignStatus
		ok       bool
	}{
		{CampaignStatusDraft, CampaignStatusActive, true},
		{CampaignStatusDraft, CampaignStatusPaused, false},
		{CampaignStatusActive, CampaignStatusPaused, true},
		{CampaignStatusPaused, CampaignStatusActive, true},
		{CampaignStatusActive, CampaignStatusCompleted, true},
		{CampaignStatusPaused, CampaignStatusCancelled, true},
		{CampaignStatusCompleted, CampaignStatusActive, false},
		{CampaignStatusCancelled, CampaignStatusDraft, false},
	}
	for _, tt := range tests {
		c := newCampaign(t, money, orgA)
		c.Status = tt.from
		err := c.CanTransitionTo(tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition), "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestCampaignWindow(t *testing.T) {
	_, err := NewCampaign(domain.NewCampaignID(), CampaignDetails{
		Title:           "Backwards",
		OrganizationIDs: []domain.OrganizationID{orgA},
		StartDate:       now,
		EndDate:         now.Add(-time.Hour),
		AcceptedTypes:   money,
	}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	c := newCampaign(t, money, orgA)
	assert.True(t, c.InWindow(c.StartDate))
	assert.True(t, c.InWindow(c.EndDate))
	assert.False(t, c.InWindow(c.EndDate.Add(time.Nanosecond)))

	err = c.CanReschedule(now, now.AddDate(0, 1, 0), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "started campaigns keep their window")

	future := newCampaign(t, money, orgA)
	future.StartDate = now.AddDate(0, 0, 5)
	assert.NoError(t, future.CanReschedule(now.AddDate(0, 0, 6), now.AddDate(0, 0, 9), now))
}

func TestNewAssociation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cause := newCause(t, orgA, money)
		campaign := newCampaign(t, domain.ContributionTypes{domain.ContributionMoney, domain.ContributionFood}, orgB, orgA)
		a, err := NewAssociation(cause, campaign, now)
		require.NoError(t, err)
		assert.Equal(t, cause.ID, a.CauseID)
		assert.Equal(t, campaign.ID, a.CampaignID)
	})

	t.Run("no shared contribution type", func(t *testing.T) {
		_, err := NewAssociation(newCause(t, orgA, money), newCampaign(t, food, orgA), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAssociation))
	})

	t.Run("no shared organization", func(t *testing.T) {
		_, err := NewAssociation(newCause(t, orgA, money), newCampaign(t, money, orgB), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAssociation))
	})
}

func TestIsVisible(t *testing.T) {
	cause := newCause(t, orgA, money)
	live := newCampaign(t, money, orgA)
	live.Status = CampaignStatusActive

	assert.False(t, IsVisible(cause, nil, now), "no associations")
	assert.True(t, IsVisible(cause, []*Campaign{live}, now))

	paused := newCampaign(t, money, orgA)
	paused.Status = CampaignStatusPaused
	assert.False(t, IsVisible(cause, []*Campaign{paused}, now))

	ended := newCampaign(t, money, orgA)
	ended.Status = CampaignStatusActive
	ended.EndDate = now.Add(-time.Minute)
	assert.False(t, IsVisible(cause, []*Campaign{ended}, now))

	assert.True(t, IsVisible(cause, []*Campaign{paused, ended, live}, now))

	cause.ApplyDeactivation(now)
	assert.False(t, IsVisible(cause, []*Campaign{live}, now), "deactivated causes are never visible")
}
