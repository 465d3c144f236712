package domain

import dErrors "donorhub/pkg/domain-errors"

// Role is the capacity in which an actor calls the core. The identity layer
// resolves it; the core trusts it but still enforces ownership itself.
type Role string

const (
	RoleDonor        Role = "donor"
	RoleOrganization Role = "organization"
	// RoleSystem is used by background workers such as the campaign scheduler.
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleDonor, RoleOrganization:
		return r, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
}

// Actor is the explicit caller identity passed into every core operation.
// Exactly one of DonorID / OrganizationID is set, matching Role.
type Actor struct {
	Role           Role
	DonorID        DonorID
	OrganizationID OrganizationID
}

func DonorActor(id DonorID) Actor {
	return Actor{Role: RoleDonor, DonorID: id}
}

func OrganizationActor(id OrganizationID) Actor {
	return Actor{Role: RoleOrganization, OrganizationID: id}
}

func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

func (a Actor) IsDonor() bool {
	return a.Role == RoleDonor && !a.DonorID.IsNil()
}

func (a Actor) IsOrganization() bool {
	return a.Role == RoleOrganization && !a.OrganizationID.IsNil()
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// ID returns the identifier of whoever the actor represents, for logs.
func (a Actor) ID() string {
	switch a.Role {
	case RoleDonor:
		return a.DonorID.String()
	case RoleOrganization:
		return a.OrganizationID.String()
	}
	return string(a.Role)
}
