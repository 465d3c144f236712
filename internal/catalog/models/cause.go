package models

import (
	"time"

	"github.com/shopspring/decimal"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	pkgstrings "donorhub/pkg/platform/strings"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxTags              = 20
)

// Cause is the aggregate root for a fundraising target owned by one organization.
//
// Invariants:
//   - OrganizationID is set at construction and never changes
//   - Title is non-empty after whitespace collapsing
//   - TargetAmount is non-negative (zero is allowed for items-only causes)
//   - AcceptedTypes is a non-empty, canonical set
//   - RaisedAmount and DonorCount are derived and only written by aggregation
//
// Causes are never hard-deleted while a non-cancelled donation references them;
// Active=false is the soft-deactivation and makes the cause permanently
// invisible to donors regardless of campaign membership.
type Cause struct {
	ID             domain.CauseID           `json:"id"`
	OrganizationID domain.OrganizationID    `json:"organization_id"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description"`
	Tags           []string                 `json:"tags"`
	TargetAmount   decimal.Decimal          `json:"target_amount"`
	RaisedAmount   decimal.Decimal          `json:"raised_amount"`
	DonorCount     int                      `json:"donor_count"`
	AcceptedTypes  domain.ContributionTypes `json:"accepted_contribution_types"`
	Active         bool                     `json:"active"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// CauseDetails are the organization-editable fields of a cause.
type CauseDetails struct {
	Title         string
	Description   string
	Tags          []string
	TargetAmount  decimal.Decimal
	AcceptedTypes domain.ContributionTypes
}

func (d *CauseDetails) normalize() error {
	d.Title = pkgstrings.CollapseSpaces(d.Title)
	if d.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if len(d.Title) > maxTitleLength {
		return dErrors.New(dErrors.CodeValidation, "title must be 200 characters or less")
	}
	if len(d.Description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description must be 5000 characters or less")
	}
	if d.TargetAmount.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidAmount, "target amount must not be negative")
	}
	if d.TargetAmount.GreaterThan(domain.MaxMoneyAmount) {
		return dErrors.New(dErrors.CodeInvalidAmount, "target amount must not exceed "+domain.MaxMoneyAmount.String())
	}
	if !d.TargetAmount.Equal(d.TargetAmount.Truncate(2)) {
		return dErrors.New(dErrors.CodeInvalidAmount, "target amount must have at most 2 decimal places")
	}
	d.AcceptedTypes = d.AcceptedTypes.Normalize()
	if len(d.AcceptedTypes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one accepted contribution type is required")
	}
	d.Tags = pkgstrings.DedupeAndTrimLower(d.Tags)
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if len(d.Tags) > maxTags {
		return dErrors.New(dErrors.CodeValidation, "a cause can carry at most 20 tags")
	}
	return nil
}

func NewCause(id domain.CauseID, orgID domain.OrganizationID, details CauseDetails, now time.Time) (*Cause, error) {
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cause must have an owning organization")
	}
	if err := details.normalize(); err != nil {
		return nil, err
	}
	return &Cause{
		ID:             id,
		OrganizationID: orgID,
		Title:          details.Title,
		Description:    details.Description,
		Tags:           details.Tags,
		TargetAmount:   details.TargetAmount,
		RaisedAmount:   decimal.Zero,
		AcceptedTypes:  details.AcceptedTypes,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ApplyDetails replaces the editable fields. Owner and derived totals are untouched.
func (c *Cause) ApplyDetails(details CauseDetails, now time.Time) error {
	if err := details.normalize(); err != nil {
		return err
	}
	c.Title = details.Title
	c.Description = details.Description
	c.Tags = details.Tags
	c.TargetAmount = details.TargetAmount
	c.AcceptedTypes = details.AcceptedTypes
	c.UpdatedAt = now
	return nil
}

func (c *Cause) OwnedBy(orgID domain.OrganizationID) bool {
	return c.OrganizationID == orgID
}

// Accepts reports whether donors may give the given type to this cause.
func (c *Cause) Accepts(t domain.ContributionType) bool {
	return c.AcceptedTypes.Contains(t)
}

// CanDeactivate checks the cause is not already deactivated.
func (c *Cause) CanDeactivate() error {
	if !c.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "cause is already deactivated")
	}
	return nil
}

func (c *Cause) ApplyDeactivation(now time.Time) {
	c.Active = false
	c.UpdatedAt = now
}

// ApplyTotals records freshly recomputed aggregates.
func (c *Cause) ApplyTotals(raised decimal.Decimal, donorCount int, now time.Time) {
	c.RaisedAmount = raised
	c.DonorCount = donorCount
	c.UpdatedAt = now
}
