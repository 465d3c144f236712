package models

import (
	"time"

	"github.com/shopspring/decimal"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// Donation is the aggregate root for a single contribution toward a cause.
//
// Invariants:
//   - DonorID, CauseID and OrganizationID are fixed at creation; OrganizationID
//     is copied from the cause and does not follow later cause edits
//   - Contribution is either money (positive amount, at most 2 decimals) or an
//     item category (positive quantity, non-empty unit)
//   - Status only moves along the edges in the transition table
//   - ReceiptImageRef and ReceiptDocumentRef are both set on entering RECEIVED
//     and never otherwise
//   - ConfirmedAt is set only on CONFIRMED
//   - CONFIRMED and CANCELLED are terminal; nothing changes afterwards
//   - Version increases by one with every persisted change
type Donation struct {
	ID                 domain.DonationID       `json:"id"`
	DonorID            domain.DonorID          `json:"donor_id"`
	CauseID            domain.CauseID          `json:"cause_id"`
	OrganizationID     domain.OrganizationID   `json:"organization_id"`
	Type               domain.ContributionType `json:"contribution_type"`
	Amount             decimal.Decimal         `json:"amount"`
	Quantity           int64                   `json:"quantity,omitempty"`
	Unit               string                  `json:"unit,omitempty"`
	Status             Status                  `json:"status"`
	ReceiptImageRef    string                  `json:"-"`
	ReceiptDocumentRef string                  `json:"-"`
	DocumentNumber     string                  `json:"-"`
	Version            int64                   `json:"version"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	ApprovedAt         *time.Time              `json:"approved_at,omitempty"`
	ReceivedAt         *time.Time              `json:"received_at,omitempty"`
	ConfirmedAt        *time.Time              `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time              `json:"cancelled_at,omitempty"`
}

// NewDonation builds a PENDING donation. Visibility and accepted-type checks
// against the cause are the caller's job; this only enforces the record's own
// invariants.
func NewDonation(id domain.DonationID, donorID domain.DonorID, causeID domain.CauseID,
	orgID domain.OrganizationID, c domain.Contribution, now time.Time) (*Donation, error) {
	if donorID.IsNil() || causeID.IsNil() || orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donation references are required")
	}
	switch {
	case c.IsMoney():
		if err := domain.ValidateMoneyAmount(c.Amount); err != nil {
			return nil, err
		}
	case c.Type.IsItem():
		if err := domain.ValidateItemQuantity(c.Quantity); err != nil {
			return nil, err
		}
		if c.Unit == "" {
			return nil, dErrors.New(dErrors.CodeInvalidAmount, "item contributions need a unit")
		}
	default:
		return nil, dErrors.New(dErrors.CodeUnsupportedContributionType, "unsupported contribution type: "+string(c.Type))
	}
	return &Donation{
		ID:             id,
		DonorID:        donorID,
		CauseID:        causeID,
		OrganizationID: orgID,
		Type:           c.Type,
		Amount:         c.Amount,
		Quantity:       c.Quantity,
		Unit:           c.Unit,
		Status:         StatusPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Contribution returns the value object the donation was created from.
func (d *Donation) Contribution() domain.Contribution {
	return domain.Contribution{Type: d.Type, Amount: d.Amount, Quantity: d.Quantity, Unit: d.Unit}
}

// CanTransition validates target against the state machine and the actor's
// role and ownership. Structural legality is checked first so an illegal edge
// always reports illegal_transition whoever asks. A role that may reach
// target from some other status also gets illegal_transition: the donation
// moved on since the actor last saw it. Forbidden is kept for roles that can
// never drive target and for ownership mismatches.
func (d *Donation) CanTransition(target Status, actor domain.Actor) error {
	if d.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeIllegalTransition,
			"donation is "+d.Status.String()+" and can no longer change")
	}
	t, ok := LookupTransition(d.Status, target)
	if !ok {
		return dErrors.New(dErrors.CodeIllegalTransition,
			"cannot move donation from "+d.Status.String()+" to "+target.String())
	}
	if !t.AllowsRole(actor.Role) {
		if RoleCanReach(actor.Role, target) {
			return dErrors.New(dErrors.CodeIllegalTransition,
				string(actor.Role)+" cannot move a "+d.Status.String()+" donation to "+target.String())
		}
		return dErrors.New(dErrors.CodeForbidden,
			string(actor.Role)+" may not move donation to "+target.String())
	}
	switch actor.Role {
	case domain.RoleOrganization:
		if actor.OrganizationID != d.OrganizationID {
			return dErrors.New(dErrors.CodeForbidden, "donation belongs to another organization")
		}
	case domain.RoleDonor:
		if actor.DonorID != d.DonorID {
			return dErrors.New(dErrors.CodeForbidden, "only the original donor may do this")
		}
	}
	return nil
}

// ApplyTransition moves the donation to target. RECEIVED requires both
// receipt references; the caller must have validated with CanTransition.
func (d *Donation) ApplyTransition(target Status, receipt *ReceiptRefs, now time.Time) error {
	switch target {
	case StatusApproved:
		d.ApprovedAt = &now
	case StatusReceived:
		if receipt == nil || receipt.ImageRef == "" || receipt.DocumentRef == "" {
			return dErrors.New(dErrors.CodeInvariantViolation, "received donations need both receipt references")
		}
		d.ReceiptImageRef = receipt.ImageRef
		d.ReceiptDocumentRef = receipt.DocumentRef
		d.DocumentNumber = receipt.DocumentNumber
		d.ReceivedAt = &now
	case StatusConfirmed:
		d.ConfirmedAt = &now
	case StatusCancelled:
		d.CancelledAt = &now
	}
	d.Status = target
	d.UpdatedAt = now
	d.Version++
	return nil
}

// IsVisibleTo reports whether actor may read this donation.
func (d *Donation) IsVisibleTo(actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleDonor:
		return actor.DonorID == d.DonorID
	case domain.RoleOrganization:
		return actor.OrganizationID == d.OrganizationID
	case domain.RoleSystem:
		return true
	}
	return false
}
