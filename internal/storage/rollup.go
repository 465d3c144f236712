package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"donorhub/pkg/domain"
)

// RollupGroup selects the extra grouping dimensions of a rollup.
type RollupGroup struct {
	Month        bool
	Cause        bool
	Organization bool
}

// RollupQuery selects counted (RECEIVED or CONFIRMED) donations. ReceivedFrom
// is inclusive and ReceivedTo exclusive; zero values leave the bound open.
type RollupQuery struct {
	CauseID        *domain.CauseID
	OrganizationID *domain.OrganizationID
	Type           *domain.ContributionType
	ReceivedFrom   time.Time
	ReceivedTo     time.Time
	GroupBy        RollupGroup
}

// RollupRow is one group. Month is the first instant of the UTC month when
// grouped by month; CauseID / OrganizationID are set when grouped by them.
type RollupRow struct {
	Month          time.Time
	CauseID        domain.CauseID
	OrganizationID domain.OrganizationID
	Type           domain.ContributionType
	Count          int64
	Amount         decimal.Decimal
	Quantity       decimal.Decimal
}

// MonthStart truncates t to the first instant of its UTC month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
