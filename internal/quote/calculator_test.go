package quote

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/pricing"
	"parkspot-backend/internal/tax"
)

var calcTime = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func chainAt(t *testing.T, raw string) domain.PricingChain {
	t.Helper()
	m, err := domain.ParseMoney(raw, domain.CurrencyPHP)
	require.NoError(t, err)
	return domain.PricingChain{Location: domain.PricingConfig{HourlyRate: &m}}
}

func window(t *testing.T, hour, minute int, d time.Duration) domain.TimeRange {
	t.Helper()
	start := time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
	r, err := domain.NewTimeRange(start, start.Add(d))
	require.NoError(t, err)
	return r
}

func addRule(t *testing.T, e *discount.Engine, id string, pct int64, exempt bool, conds ...domain.DiscountCondition) {
	t.Helper()
	p, err := domain.PercentageFromInt(pct)
	require.NoError(t, err)
	r, err := domain.NewDiscountRule(domain.RuleID(id), id, domain.DiscountTypeCustom, p, exempt, conds)
	require.NoError(t, err)
	require.NoError(t, e.AddRule(r))
}

func newCalculator(e *discount.Engine) *Calculator {
	return NewCalculator(pricing.NewResolver(), e, tax.NewDefaultCalculator())
}

func TestCalculateBookingCost(t *testing.T) {
	t.Run("Off-peak car, no discounts", func(t *testing.T) {
		e := discount.NewEngine(discount.WithClock(func() time.Time { return calcTime }))
		cost, err := newCalculator(e).CalculateBookingCost(chainAt(t, "50.00"), window(t, 10, 0, 150*time.Minute), domain.VehicleTypeCar, domain.UserContext{})
		require.NoError(t, err)
		assert.Equal(t, "150.00 PHP", cost.BaseAmount.String())
		assert.True(t, cost.DiscountAmount.IsZero())
		assert.Equal(t, "18.00 PHP", cost.VATAmount.String())
		assert.Equal(t, "168.00 PHP", cost.TotalAmount.String())
	})

	t.Run("Senior citizen is VAT exempt", func(t *testing.T) {
		e := discount.NewEngine(discount.WithClock(func() time.Time { return calcTime }))
		age, err := domain.NewDiscountCondition("age", domain.OperatorGreaterThanOrEqual, domain.IntValue(60))
		require.NoError(t, err)
		addRule(t, e, "senior", 20, true, age)

		senior := 65
		cost, err := newCalculator(e).CalculateBookingCost(chainAt(t, "50.00"), window(t, 10, 0, 150*time.Minute), domain.VehicleTypeCar, domain.UserContext{Age: &senior})
		require.NoError(t, err)
		assert.Equal(t, "150.00 PHP", cost.BaseAmount.String())
		assert.Equal(t, "30.00 PHP", cost.DiscountAmount.String())
		assert.Equal(t, "0.00 PHP", cost.VATAmount.String())
		assert.Equal(t, "120.00 PHP", cost.TotalAmount.String())
		require.Len(t, cost.Discounts, 1)
		assert.True(t, cost.Transaction.VAT.IsExempt)
	})

	t.Run("Flat stacking", func(t *testing.T) {
		e := discount.NewEngine()
		addRule(t, e, "ten", 10, false)
		addRule(t, e, "fifteen", 15, false)

		cost, err := newCalculator(e).CalculateBookingCost(chainAt(t, "100.00"), window(t, 12, 0, time.Hour), domain.VehicleTypeCar, domain.UserContext{})
		require.NoError(t, err)
		assert.Equal(t, "25.00 PHP", cost.DiscountAmount.String())
		assert.Equal(t, "9.00 PHP", cost.VATAmount.String())
		assert.Equal(t, "84.00 PHP", cost.TotalAmount.String())
	})

	t.Run("Discount clamped at base", func(t *testing.T) {
		e := discount.NewEngine()
		addRule(t, e, "a", 80, false)
		addRule(t, e, "b", 70, false)

		cost, err := newCalculator(e).CalculateBookingCost(chainAt(t, "100.00"), window(t, 12, 0, time.Hour), domain.VehicleTypeCar, domain.UserContext{})
		require.NoError(t, err)
		assert.Equal(t, "100.00 PHP", cost.DiscountAmount.String())
		assert.True(t, cost.TotalAmount.IsZero())
		assert.Equal(t, "150.00 PHP", cost.Transaction.TotalDiscountAmount().String())
	})

	t.Run("Motorcycle at peak", func(t *testing.T) {
		cost, err := newCalculator(discount.NewEngine()).CalculateBookingCost(chainAt(t, "50.00"), window(t, 7, 30, time.Hour), domain.VehicleTypeMotorcycle, domain.UserContext{})
		require.NoError(t, err)
		assert.Equal(t, "37.5", cost.Rate.EffectiveHourlyRate.String())
		assert.Equal(t, "37.50 PHP", cost.BaseAmount.String())
	})

	t.Run("Missing base rate", func(t *testing.T) {
		_, err := newCalculator(discount.NewEngine()).CalculateBookingCost(domain.PricingChain{}, window(t, 7, 30, time.Hour), domain.VehicleTypeCar, domain.UserContext{})
		assert.ErrorIs(t, err, pricing.ErrMissingBaseRate)
	})

	t.Run("Total monotonic in duration", func(t *testing.T) {
		e := discount.NewEngine()
		addRule(t, e, "ten", 10, false)
		calc := newCalculator(e)

		var previous domain.Money
		for minutes := 5; minutes <= 24*60; minutes += 55 {
			cost, err := calc.CalculateBookingCost(chainAt(t, "45.50"), window(t, 10, 0, time.Duration(minutes)*time.Minute), domain.VehicleTypeVan, domain.UserContext{})
			require.NoError(t, err)
			if minutes > 5 {
				cmp, err := cost.TotalAmount.Compare(previous)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, cmp, 0)
			}
			discountCmp, err := cost.DiscountAmount.Compare(cost.BaseAmount)
			require.NoError(t, err)
			assert.LessOrEqual(t, discountCmp, 0)
			previous = cost.TotalAmount
		}
	})
}

type failingVAT struct{}

func (failingVAT) Calculate(domain.Money, []domain.AppliedDiscount) (domain.VATCalculation, error) {
	return domain.VATCalculation{}, errors.New("boom")
}

func TestCalculateBookingCostPropagatesVATErrors(t *testing.T) {
	calc := NewCalculator(pricing.NewResolver(), discount.NewEngine(), failingVAT{})
	_, err := calc.CalculateBookingCost(chainAt(t, "10.00"), window(t, 10, 0, time.Hour), domain.VehicleTypeCar, domain.UserContext{})
	assert.ErrorContains(t, err, "boom")
}
