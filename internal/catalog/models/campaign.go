package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	pkgstrings "donorhub/pkg/platform/strings"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:  {CampaignStatusActive, CampaignStatusCancelled},
	CampaignStatusActive: {CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusCancelled},
	CampaignStatusPaused: {CampaignStatusActive, CampaignStatusCompleted, CampaignStatusCancelled},
}

func ParseCampaignStatus(s string) (CampaignStatus, error) {
	status := CampaignStatus(s)
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid campaign status: "+s)
	}
	return status, nil
}

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused,
		CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	}
	return false
}

func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusCancelled
}

func (s CampaignStatus) CanTransitionTo(target CampaignStatus) bool {
	return slices.Contains(campaignTransitions[s], target)
}

func (s CampaignStatus) String() string {
	return string(s)
}

// Campaign is the aggregate root for a time-boxed grouping of causes.
//
// Invariants:
//   - OrganizationIDs holds at least one owner, without duplicates
//   - StartDate <= EndDate; the window is inclusive at both ends
//   - The window is frozen once StartDate has passed
//   - completed and cancelled are terminal
//   - TargetAmount and RaisedAmount are sums over associated causes and are
//     only written by aggregation
type Campaign struct {
	ID              domain.CampaignID        `json:"id"`
	OrganizationIDs []domain.OrganizationID  `json:"organization_ids"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	StartDate       time.Time                `json:"start_date"`
	EndDate         time.Time                `json:"end_date"`
	Status          CampaignStatus           `json:"status"`
	AutoStart       bool                     `json:"auto_start"`
	AcceptedTypes   domain.ContributionTypes `json:"accepted_contribution_types"`
	TargetAmount    decimal.Decimal          `json:"total_target_amount"`
	RaisedAmount    decimal.Decimal          `json:"total_raised_amount"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// CampaignDetails are the fields supplied when creating a campaign.
type CampaignDetails struct {
	Title           string
	Description     string
	OrganizationIDs []domain.OrganizationID
	StartDate       time.Time
	EndDate         time.Time
	AcceptedTypes   domain.ContributionTypes
	AutoStart       bool
}

func NewCampaign(id domain.CampaignID, details CampaignDetails, now time.Time) (*Campaign, error) {
	title := pkgstrings.CollapseSpaces(details.Title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if len(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeValidation, "title must be 200 characters or less")
	}
	owners := dedupeOrganizations(details.OrganizationIDs)
	if len(owners) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "campaign needs at least one owning organization")
	}
	if err := validateWindow(details.StartDate, details.EndDate); err != nil {
		return nil, err
	}
	accepted := details.AcceptedTypes.Normalize()
	if len(accepted) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one accepted contribution type is required")
	}
	return &Campaign{
		ID:              id,
		OrganizationIDs: owners,
		Title:           title,
		Description:     details.Description,
		StartDate:       details.StartDate.UTC(),
		EndDate:         details.EndDate.UTC(),
		Status:          CampaignStatusDraft,
		AutoStart:       details.AutoStart,
		AcceptedTypes:   accepted,
		TargetAmount:    decimal.Zero,
		RaisedAmount:    decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start and end dates are required")
	}
	if start.After(end) {
		return dErrors.New(dErrors.CodeValidation, "start date must not be after end date")
	}
	return nil
}

func dedupeOrganizations(ids []domain.OrganizationID) []domain.OrganizationID {
	out := make([]domain.OrganizationID, 0, len(ids))
	for _, id := range ids {
		if !id.IsNil() && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (c *Campaign) OwnedBy(orgID domain.OrganizationID) bool {
	return slices.Contains(c.OrganizationIDs, orgID)
}

// HasStarted reports whether the window has opened, regardless of status.
func (c *Campaign) HasStarted(now time.Time) bool {
	return !now.Before(c.StartDate)
}

// HasEnded reports whether now is past the inclusive end of the window.
func (c *Campaign) HasEnded(now time.Time) bool {
	return now.After(c.EndDate)
}

// InWindow reports whether now falls inside [StartDate, EndDate].
func (c *Campaign) InWindow(now time.Time) bool {
	return c.HasStarted(now) && !c.HasEnded(now)
}

// IsLive reports whether the campaign currently grants donor visibility.
func (c *Campaign) IsLive(now time.Time) bool {
	return c.Status == CampaignStatusActive && c.InWindow(now)
}

// CanReschedule checks the window may still be edited.
func (c *Campaign) CanReschedule(start, end time.Time, now time.Time) error {
	if c.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "campaign is "+c.Status.String())
	}
	if c.HasStarted(now) {
		return dErrors.New(dErrors.CodeInvariantViolation, "campaign window is frozen once the campaign has started")
	}
	return validateWindow(start, end)
}

func (c *Campaign) ApplyReschedule(start, end time.Time, now time.Time) {
	c.StartDate = start.UTC()
	c.EndDate = end.UTC()
	c.UpdatedAt = now
}

// CanTransitionTo checks the status change against the campaign lifecycle.
func (c *Campaign) CanTransitionTo(target CampaignStatus) error {
	if c.Status == target {
		return dErrors.New(dErrors.CodeIllegalTransition, "campaign is already "+target.String())
	}
	if !c.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeIllegalTransition,
			"campaign cannot move from "+c.Status.String()+" to "+target.String())
	}
	return nil
}

func (c *Campaign) ApplyStatus(target CampaignStatus, now time.Time) {
	c.Status = target
	c.UpdatedAt = now
}

// ApplyTotals records freshly recomputed sums over associated causes.
func (c *Campaign) ApplyTotals(target, raised decimal.Decimal, now time.Time) {
	c.TargetAmount = target
	c.RaisedAmount = raised
	c.UpdatedAt = now
}
