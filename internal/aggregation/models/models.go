// Package models holds the read models returned by aggregation queries.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// Totals is the progress view of a cause or campaign.
type Totals struct {
	TargetAmount decimal.Decimal `json:"target_amount"`
	RaisedAmount decimal.Decimal `json:"raised_amount"`
	DonorCount   int             `json:"donor_count,omitempty"`
	// ProgressPercent is raised/target*100 rounded to 2dp. It is not capped
	// at 100 and is zero when the target is zero.
	ProgressPercent decimal.Decimal `json:"progress_percent"`
}

func NewTotals(target, raised decimal.Decimal, donors int) Totals {
	progress := decimal.Zero
	if target.IsPositive() {
		progress = raised.Div(target).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return Totals{
		TargetAmount:    target,
		RaisedAmount:    raised,
		DonorCount:      donors,
		ProgressPercent: progress,
	}
}

// Scope narrows an analytics query. Zero values leave a dimension open.
type Scope struct {
	CauseID        *domain.CauseID
	OrganizationID *domain.OrganizationID
	Type           *domain.ContributionType
}

// TrendBucket is one calendar month (UTC) of counted donations.
type TrendBucket struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// TypeTotal is one row of a contribution-type breakdown. Quantity is the sum
// of item units and is zero for MONEY.
type TypeTotal struct {
	Type     domain.ContributionType `json:"contribution_type"`
	Count    int64                   `json:"count"`
	Quantity decimal.Decimal         `json:"quantity"`
	Total    decimal.Decimal         `json:"total"`
}

type Entity string

const (
	EntityCause        Entity = "cause"
	EntityOrganization Entity = "organization"
)

func ParseEntity(s string) (Entity, error) {
	switch Entity(s) {
	case EntityCause, EntityOrganization:
		return Entity(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "entity must be cause or organization")
}

type Metric string

const (
	MetricCount Metric = "count"
	MetricTotal Metric = "total"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCount, MetricTotal:
		return Metric(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "metric must be count or total")
}

// RankedEntity is one row of a top-N ranking.
type RankedEntity struct {
	Entity Entity          `json:"entity"`
	ID     string          `json:"id"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// Dashboard bundles the reports an organization home screen needs.
type Dashboard struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Breakdown   []TypeTotal     `json:"breakdown"`
	Trend       []TrendBucket   `json:"trend"`
	TopCauses   []RankedEntity  `json:"top_causes"`
	Total       decimal.Decimal `json:"total"`
	Count       int64           `json:"count"`
}
