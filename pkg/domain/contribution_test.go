package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "donorhub/pkg/domain-errors"
)

func TestParseContributionType(t *testing.T) {
	t.Run("accepts known types case-insensitively", func(t *testing.T) {
		got, err := ParseContributionType(" food ")
		require.NoError(t, err)
		assert.Equal(t, ContributionFood, got)
		assert.True(t, got.IsItem())
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		_, err := ParseContributionType("CRYPTO")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnsupportedContributionType))
	})

	t.Run("money is not an item", func(t *testing.T) {
		assert.False(t, ContributionMoney.IsItem())
	})
}

func TestContributionTypes(t *testing.T) {
	set, err := ParseContributionTypes([]string{"books", "MONEY", "Books"})
	require.NoError(t, err)
	assert.Equal(t, ContributionTypes{ContributionMoney, ContributionBooks}, set)

	assert.True(t, set.Intersects(ContributionTypes{ContributionBooks, ContributionToys}))
	assert.False(t, set.Intersects(ContributionTypes{ContributionToys}))
	assert.False(t, set.Intersects(nil))

	_, err = ParseContributionTypes(nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestValidateMoneyAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"whole amount", "50", false},
		{"two decimals", "12.34", false},
		{"trailing zeros beyond scale", "10.500", false},
		{"three decimals", "1.005", true},
		{"zero", "0", true},
		{"negative", "-5", true},
		{"at the ceiling", "1000000000000", false},
		{"above the ceiling", "1000000000000.01", true},
		{"beyond column precision", "1000000000000000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMoneyAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseContribution(t *testing.T) {
	t.Run("money", func(t *testing.T) {
		c, err := ParseContribution("MONEY", decimal.RequireFromString("25.50"), 0, "")
		require.NoError(t, err)
		assert.True(t, c.IsMoney())
		assert.True(t, c.Amount.Equal(decimal.RequireFromString("25.5")))
	})

	t.Run("money with quantity is rejected", func(t *testing.T) {
		_, err := ParseContribution("MONEY", decimal.NewFromInt(5), 2, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	t.Run("items", func(t *testing.T) {
		c, err := ParseContribution("CLOTHING", decimal.Zero, 3, " bags ")
		require.NoError(t, err)
		assert.Equal(t, int64(3), c.Quantity)
		assert.Equal(t, "bags", c.Unit)
	})

	t.Run("items need a positive quantity", func(t *testing.T) {
		_, err := ParseContribution("FOOD", decimal.Zero, 0, "kg")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	t.Run("items are capped", func(t *testing.T) {
		c, err := ParseContribution("FOOD", decimal.Zero, MaxItemQuantity, "kg")
		require.NoError(t, err)
		assert.Equal(t, MaxItemQuantity, c.Quantity)

		_, err = ParseContribution("FOOD", decimal.Zero, MaxItemQuantity+1, "kg")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
		_, err = ParseContribution("FOOD", decimal.Zero, 5_000_000_000_000_000_000, "kg")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	t.Run("items need a unit", func(t *testing.T) {
		_, err := ParseContribution("FOOD", decimal.Zero, 2, "  ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	t.Run("items reject an amount", func(t *testing.T) {
		_, err := ParseContribution("FOOD", decimal.NewFromInt(10), 2, "kg")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ParseContribution("GOLD", decimal.NewFromInt(10), 0, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnsupportedContributionType))
	})
}

func TestValidateTotalAmount(t *testing.T) {
	require.NoError(t, ValidateTotalAmount(decimal.RequireFromString("999999999999999999999.99")))
	err := ValidateTotalAmount(MaxTotalAmount)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
