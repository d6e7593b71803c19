package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVATCalculation(t *testing.T) {
	t.Run("Total is net plus vat", func(t *testing.T) {
		calc, err := NewVATCalculation(php(t, "100.00"), php(t, "12.00"), decimal.RequireFromString("0.12"), false, nil)
		require.NoError(t, err)
		assert.Equal(t, "112.00 PHP", calc.TotalAmount.String())
	})

	t.Run("Exempt with vat is inconsistent", func(t *testing.T) {
		_, err := NewVATCalculation(php(t, "100.00"), php(t, "1.00"), decimal.Zero, true, nil)
		assert.ErrorIs(t, err, ErrInvalidCalculation)
	})
}

func TestTransactionCalculation(t *testing.T) {
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	rule := seniorRule(t)
	rule.UpdateVATExemption(false)
	applied := NewAppliedDiscount(rule, php(t, "100.00"), at)

	vat, err := NewVATCalculation(php(t, "80.00"), php(t, "9.60"), decimal.RequireFromString("0.12"), false, nil)
	require.NoError(t, err)

	tx, err := NewTransactionCalculation(php(t, "100.00"), []AppliedDiscount{applied}, vat)
	require.NoError(t, err)

	assert.True(t, tx.FinalAmount.Equals(vat.TotalAmount))
	assert.Equal(t, "20.00 PHP", tx.TotalDiscountAmount().String())
	assert.Equal(t, "10.40 PHP", tx.SavingsAmount().String())

	b := tx.Breakdown()
	assert.Len(t, b.Discounts, 1)
	assert.Equal(t, "80.00 PHP", b.NetAmount.String())
	assert.Equal(t, "89.60 PHP", b.FinalAmount.String())

	t.Run("Savings never negative", func(t *testing.T) {
		vat, err := NewVATCalculation(php(t, "100.00"), php(t, "12.00"), decimal.RequireFromString("0.12"), false, nil)
		require.NoError(t, err)
		tx, err := NewTransactionCalculation(php(t, "100.00"), nil, vat)
		require.NoError(t, err)
		assert.True(t, tx.SavingsAmount().IsZero())
		assert.True(t, tx.TotalDiscountAmount().IsZero())
	})

	t.Run("Currency mismatch", func(t *testing.T) {
		usd, _ := ParseMoney("100.00", "USD")
		_, err := NewTransactionCalculation(usd, []AppliedDiscount{applied}, vat)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})
}
