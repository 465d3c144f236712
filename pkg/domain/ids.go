// Package domain holds the value types shared by every donorhub module:
// typed identifiers, actors, and contribution values.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "donorhub/pkg/domain-errors"
)

// Typed IDs keep a cause ID from ever being passed where a donation ID is
// expected. Construct them with the Parse* functions at trust boundaries or
// with New* for fresh records.
type (
	UserID         uuid.UUID
	DonorID        uuid.UUID
	OrganizationID uuid.UUID
	CauseID        uuid.UUID
	CampaignID     uuid.UUID
	DonationID     uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s, "donor id")
	return DonorID(u), err
}

func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s, "organization id")
	return OrganizationID(u), err
}

func ParseCauseID(s string) (CauseID, error) {
	u, err := parseUUID(s, "cause id")
	return CauseID(u), err
}

func ParseCampaignID(s string) (CampaignID, error) {
	u, err := parseUUID(s, "campaign id")
	return CampaignID(u), err
}

func ParseDonationID(s string) (DonationID, error) {
	u, err := parseUUID(s, "donation id")
	return DonationID(u), err
}

func NewCauseID() CauseID       { return CauseID(uuid.New()) }
func NewCampaignID() CampaignID { return CampaignID(uuid.New()) }
func NewDonationID() DonationID { return DonationID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id DonorID) String() string        { return uuid.UUID(id).String() }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id CauseID) String() string        { return uuid.UUID(id).String() }
func (id CampaignID) String() string     { return uuid.UUID(id).String() }
func (id DonationID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id DonorID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CauseID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CampaignID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshalling renders IDs as canonical UUID strings in JSON instead of
// byte arrays.

func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id DonorID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id OrganizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CauseID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id CampaignID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id DonationID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DonorID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *OrganizationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CauseID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CampaignID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DonationID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
