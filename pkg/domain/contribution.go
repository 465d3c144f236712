package domain

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	dErrors "donorhub/pkg/domain-errors"
)

// ContributionType is the closed set of things a donor can give. Anything
// outside this set is rejected at the boundary rather than passed along.
type ContributionType string

const (
	ContributionMoney           ContributionType = "MONEY"
	ContributionFood            ContributionType = "FOOD"
	ContributionClothing        ContributionType = "CLOTHING"
	ContributionBooks           ContributionType = "BOOKS"
	ContributionToys            ContributionType = "TOYS"
	ContributionMedicalSupplies ContributionType = "MEDICAL_SUPPLIES"
	ContributionHygiene         ContributionType = "HYGIENE"
	ContributionFurniture       ContributionType = "FURNITURE"
	ContributionElectronics     ContributionType = "ELECTRONICS"
)

// contributionOrder is the canonical ordering used for sets and reports.
var contributionOrder = []ContributionType{
	ContributionMoney,
	ContributionFood,
	ContributionClothing,
	ContributionBooks,
	ContributionToys,
	ContributionMedicalSupplies,
	ContributionHygiene,
	ContributionFurniture,
	ContributionElectronics,
}

// ItemCategories lists every non-monetary contribution type.
func ItemCategories() []ContributionType {
	return slices.Clone(contributionOrder[1:])
}

// ParseContributionType accepts the wire name case-insensitively.
func ParseContributionType(s string) (ContributionType, error) {
	t := ContributionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeUnsupportedContributionType, "unsupported contribution type: "+s)
	}
	return t, nil
}

func (t ContributionType) IsValid() bool {
	return slices.Contains(contributionOrder, t)
}

func (t ContributionType) IsItem() bool {
	return t.IsValid() && t != ContributionMoney
}

func (t ContributionType) String() string {
	return string(t)
}

func (t ContributionType) rank() int {
	return slices.Index(contributionOrder, t)
}

// ContributionTypes is a set of accepted contribution types kept in
// canonical order without duplicates.
type ContributionTypes []ContributionType

// ParseContributionTypes validates and normalizes a list of wire names.
// The result is never empty on success.
func ParseContributionTypes(values []string) (ContributionTypes, error) {
	set := make(ContributionTypes, 0, len(values))
	for _, v := range values {
		t, err := ParseContributionType(v)
		if err != nil {
			return nil, err
		}
		set = append(set, t)
	}
	set = set.Normalize()
	if len(set) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one accepted contribution type is required")
	}
	return set, nil
}

// Normalize drops invalid and duplicate entries and sorts canonically.
func (s ContributionTypes) Normalize() ContributionTypes {
	out := make(ContributionTypes, 0, len(s))
	for _, t := range s {
		if t.IsValid() && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b ContributionType) int { return a.rank() - b.rank() })
	return out
}

func (s ContributionTypes) Contains(t ContributionType) bool {
	return slices.Contains(s, t)
}

// Intersects reports whether the two sets share at least one type.
func (s ContributionTypes) Intersects(other ContributionTypes) bool {
	for _, t := range s {
		if other.Contains(t) {
			return true
		}
	}
	return false
}

func (s ContributionTypes) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = string(t)
	}
	return out
}

// Bounds on a single contribution and on derived totals. Single amounts and
// targets fit NUMERIC(16,2); totals over many donations fit NUMERIC(24,2).
const MaxItemQuantity int64 = 1_000_000

var (
	MaxMoneyAmount = decimal.New(1, 12)
	MaxUnitValue   = decimal.New(1, 6)
	MaxTotalAmount = decimal.New(1, 21)
)

// Contribution is the validated payload of a donation: a positive money
// amount with at most two fractional digits, or a positive whole quantity of
// an item category with a unit.
type Contribution struct {
	Type     ContributionType `json:"type"`
	Amount   decimal.Decimal  `json:"amount"`
	Quantity int64            `json:"quantity,omitempty"`
	Unit     string           `json:"unit,omitempty"`
}

// NewMoneyContribution validates a monetary amount.
func NewMoneyContribution(amount decimal.Decimal) (Contribution, error) {
	if err := ValidateMoneyAmount(amount); err != nil {
		return Contribution{}, err
	}
	return Contribution{Type: ContributionMoney, Amount: amount.Round(2)}, nil
}

// NewItemContribution validates an in-kind contribution.
func NewItemContribution(t ContributionType, quantity int64, unit string) (Contribution, error) {
	if !t.IsItem() {
		return Contribution{}, dErrors.New(dErrors.CodeUnsupportedContributionType, "not an item category: "+string(t))
	}
	if err := ValidateItemQuantity(quantity); err != nil {
		return Contribution{}, err
	}
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return Contribution{}, dErrors.New(dErrors.CodeInvalidAmount, "unit is required for item contributions")
	}
	return Contribution{Type: t, Amount: decimal.Zero, Quantity: quantity, Unit: unit}, nil
}

// ParseContribution builds a Contribution from loosely typed request fields.
// Money must not carry a quantity and items must not carry an amount.
func ParseContribution(typ string, amount decimal.Decimal, quantity int64, unit string) (Contribution, error) {
	t, err := ParseContributionType(typ)
	if err != nil {
		return Contribution{}, err
	}
	if t == ContributionMoney {
		if quantity != 0 || strings.TrimSpace(unit) != "" {
			return Contribution{}, dErrors.New(dErrors.CodeInvalidAmount, "money contributions take an amount, not a quantity")
		}
		return NewMoneyContribution(amount)
	}
	if !amount.IsZero() {
		return Contribution{}, dErrors.New(dErrors.CodeInvalidAmount, "item contributions take a quantity, not an amount")
	}
	return NewItemContribution(t, quantity, unit)
}

// ValidateMoneyAmount enforces a positive value of at most MaxMoneyAmount
// with at most 2 fractional digits.
func ValidateMoneyAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if amount.GreaterThan(MaxMoneyAmount) {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must not exceed "+MaxMoneyAmount.String())
	}
	if !amount.Equal(amount.Truncate(2)) {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must have at most 2 decimal places")
	}
	return nil
}

// ValidateItemQuantity enforces a whole quantity in 1..MaxItemQuantity.
func ValidateItemQuantity(quantity int64) error {
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "quantity must be a positive whole number")
	}
	if quantity > MaxItemQuantity {
		return dErrors.New(dErrors.CodeInvalidAmount, "quantity must not exceed 1000000")
	}
	return nil
}

// ValidateTotalAmount reports a derived total that no longer fits the
// totals columns.
func ValidateTotalAmount(total decimal.Decimal) error {
	if total.GreaterThanOrEqual(MaxTotalAmount) {
		return dErrors.New(dErrors.CodeInvariantViolation, "total exceeds "+MaxTotalAmount.String())
	}
	return nil
}

// IsMoney reports whether the contribution is monetary.
func (c Contribution) IsMoney() bool {
	return c.Type == ContributionMoney
}
