package aggregation

import (
	"github.com/shopspring/decimal"

	"donorhub/internal/storage"
	"donorhub/pkg/domain"
)

// Valuation maps each item category to its money-equivalent per unit.
// MONEY is always valued at face amount and never looked up.
type Valuation map[domain.ContributionType]decimal.Decimal

// UnitValue returns the per-unit value of an item category, zero when the
// category has no configured value.
func (v Valuation) UnitValue(t domain.ContributionType) decimal.Decimal {
	if value, ok := v[t]; ok {
		return value
	}
	return decimal.Zero
}

// Value is the valuation of one rollup row.
func (v Valuation) Value(row storage.RollupRow) decimal.Decimal {
	if row.Type == domain.ContributionMoney {
		return row.Amount
	}
	return v.UnitValue(row.Type).Mul(row.Quantity)
}

// Total sums the valuation of rows.
func (v Valuation) Total(rows []storage.RollupRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(v.Value(row))
	}
	return total.Round(2)
}
