package models

import (
	"strings"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// Status is the lifecycle state of a donation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusReceived  Status = "RECEIVED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid donation status: "+s)
	}
	return status, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusReceived, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// CountsTowardRaised reports whether donations in this status are credited
// to the cause's raised amount.
func (s Status) CountsTowardRaised() bool {
	return s == StatusReceived || s == StatusConfirmed
}

// HasReceipt reports whether donations in this status carry receipt artifacts.
func (s Status) HasReceipt() bool {
	return s == StatusReceived || s == StatusConfirmed
}

func (s Status) String() string {
	return string(s)
}

// Transition is one legal edge of the donation state machine.
type Transition struct {
	From Status
	To   Status
	// Roles allowed to drive the edge.
	Roles []domain.Role
}

// transitions is the complete table. Every edge not listed is illegal.
var transitions = []Transition{
	{From: StatusPending, To: StatusApproved, Roles: []domain.Role{domain.RoleOrganization}},
	{From: StatusPending, To: StatusCancelled, Roles: []domain.Role{domain.RoleOrganization, domain.RoleDonor}},
	{From: StatusApproved, To: StatusReceived, Roles: []domain.Role{domain.RoleOrganization}},
	{From: StatusApproved, To: StatusCancelled, Roles: []domain.Role{domain.RoleOrganization}},
	{From: StatusReceived, To: StatusConfirmed, Roles: []domain.Role{domain.RoleDonor}},
}

// LookupTransition returns the table entry for from -> to.
func LookupTransition(from, to Status) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Transitions returns a copy of the state machine table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

func (t Transition) AllowsRole(role domain.Role) bool {
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleCanReach reports whether role drives any edge into target.
func RoleCanReach(role domain.Role, target Status) bool {
	for _, t := range transitions {
		if t.To == target && t.AllowsRole(role) {
			return true
		}
	}
	return false
}
