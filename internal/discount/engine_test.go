package discount

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/tax"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func php(t *testing.T, raw string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(raw, domain.CurrencyPHP)
	require.NoError(t, err)
	return m
}

func cond(t *testing.T, field string, op domain.Operator, value any) domain.DiscountCondition {
	t.Helper()
	v, err := domain.ValueFromAny(value)
	require.NoError(t, err)
	c, err := domain.NewDiscountCondition(field, op, v)
	require.NoError(t, err)
	return c
}

func rule(t *testing.T, id string, pct int64, exempt bool, conds ...domain.DiscountCondition) domain.DiscountRule {
	t.Helper()
	p, err := domain.PercentageFromInt(pct)
	require.NoError(t, err)
	r, err := domain.NewDiscountRule(domain.RuleID(id), id, domain.DiscountTypeCustom, p, exempt, conds)
	require.NoError(t, err)
	return r
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func newEngine(t *testing.T, rules ...domain.DiscountRule) *Engine {
	t.Helper()
	e := NewEngine(WithClock(func() time.Time { return fixedNow }))
	for _, r := range rules {
		require.NoError(t, e.AddRule(r))
	}
	return e
}

func TestEngineRegistry(t *testing.T) {
	t.Run("Add keeps order and replaces in place", func(t *testing.T) {
		e := newEngine(t, rule(t, "a", 10, false), rule(t, "b", 20, false), rule(t, "c", 30, false))
		require.NoError(t, e.AddRule(rule(t, "b", 25, false)))

		rules := e.Rules()
		require.Len(t, rules, 3)
		assert.Equal(t, domain.RuleID("b"), rules[1].ID)
		assert.Equal(t, "25", rules[1].Percentage.Value().String())
	})

	t.Run("Remove", func(t *testing.T) {
		e := newEngine(t, rule(t, "a", 10, false), rule(t, "b", 20, false))
		require.NoError(t, e.RemoveRule("a"))
		assert.Equal(t, 1, e.Len())
		assert.ErrorIs(t, e.RemoveRule("a"), ErrRuleNotFound)
		_, err := e.GetRule("a")
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("Invalid rule rejected", func(t *testing.T) {
		e := newEngine(t)
		assert.ErrorIs(t, e.AddRule(domain.DiscountRule{ID: "x"}), domain.ErrInvalidRule)
		assert.Equal(t, 0, e.Len())
	})

	t.Run("Replace is all or nothing", func(t *testing.T) {
		e := newEngine(t, rule(t, "a", 10, false))
		err := e.ReplaceRules([]domain.DiscountRule{rule(t, "b", 10, false), rule(t, "b", 20, false)})
		assert.ErrorIs(t, err, domain.ErrInvalidRule)
		assert.Equal(t, domain.RuleID("a"), e.Rules()[0].ID)

		require.NoError(t, e.ReplaceRules([]domain.DiscountRule{rule(t, "x", 5, false), rule(t, "y", 6, false)}))
		assert.Equal(t, 2, e.Len())
		_, err = e.GetRule("a")
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		e := newEngine(t, rule(t, "a", 10, false))
		updated, err := e.UpdateRule("a", func(r *domain.DiscountRule) error {
			r.Deactivate()
			return nil
		})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		got, err := e.GetRule("a")
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		_, err = e.UpdateRule("a", func(r *domain.DiscountRule) error { return r.RemoveCondition(3) })
		assert.ErrorIs(t, err, domain.ErrConditionIndex)

		_, err = e.UpdateRule("missing", func(r *domain.DiscountRule) error { return nil })
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("Returned rules are copies", func(t *testing.T) {
		e := newEngine(t, rule(t, "a", 10, false, cond(t, "age", domain.OperatorGreaterThan, 1)))
		got, err := e.GetRule("a")
		require.NoError(t, err)
		got.Conditions[0].Field = "mutated"
		got.Deactivate()

		again, _ := e.GetRule("a")
		assert.Equal(t, "age", again.Conditions[0].Field)
		assert.True(t, again.IsActive)
	})
}

func TestGetApplicableDiscounts(t *testing.T) {
	senior := rule(t, "senior", 20, true, cond(t, "age", domain.OperatorGreaterThanOrEqual, 60))
	pwd := rule(t, "pwd", 20, true, cond(t, "hasPWDId", domain.OperatorEquals, true))
	student := rule(t, "student", 10, false,
		cond(t, "userType", domain.OperatorEquals, "student"),
		cond(t, "age", domain.OperatorLessThan, 30))
	inactive := rule(t, "inactive", 50, false)
	inactive.Deactivate()

	e := newEngine(t, senior, pwd, student, inactive)

	t.Run("Conjunction", func(t *testing.T) {
		got := e.GetApplicableDiscounts(domain.UserContext{UserType: "student", Age: intPtr(22)})
		require.Len(t, got, 1)
		assert.Equal(t, domain.RuleID("student"), got[0].ID)

		got = e.GetApplicableDiscounts(domain.UserContext{UserType: "student", Age: intPtr(35)})
		assert.Empty(t, got)
	})

	t.Run("Inactive rules never apply", func(t *testing.T) {
		got := e.GetApplicableDiscounts(domain.UserContext{Age: intPtr(70), HasPWDID: boolPtr(true)})
		require.Len(t, got, 2)
		assert.Equal(t, domain.RuleID("senior"), got[0].ID)
		assert.Equal(t, domain.RuleID("pwd"), got[1].ID)
	})

	t.Run("Missing fields fail closed", func(t *testing.T) {
		assert.Empty(t, e.GetApplicableDiscounts(domain.UserContext{}))
	})
}

func TestApplyBestDiscount(t *testing.T) {
	t.Run("Largest wins", func(t *testing.T) {
		e := newEngine(t, rule(t, "small", 10, false), rule(t, "big", 15, false))
		best := e.ApplyBestDiscount(php(t, "100.00"), domain.UserContext{})
		require.NotNil(t, best)
		assert.Equal(t, domain.RuleID("big"), best.RuleID)
		assert.Equal(t, "15.00 PHP", best.Amount.String())
		assert.Equal(t, fixedNow, best.AppliedAt)
	})

	t.Run("Tie keeps registry order", func(t *testing.T) {
		e := newEngine(t, rule(t, "first", 20, false), rule(t, "second", 20, true))
		best := e.ApplyBestDiscount(php(t, "100.00"), domain.UserContext{})
		require.NotNil(t, best)
		assert.Equal(t, domain.RuleID("first"), best.RuleID)
	})

	t.Run("Larger percentage wins below a cent", func(t *testing.T) {
		ten, err := domain.NewPercentage(decimal.RequireFromString("10"))
		require.NoError(t, err)
		tenPointFour, err := domain.NewPercentage(decimal.RequireFromString("10.4"))
		require.NoError(t, err)
		lo, err := domain.NewDiscountRule("lo", "lo", domain.DiscountTypeCustom, ten, false, nil)
		require.NoError(t, err)
		hi, err := domain.NewDiscountRule("hi", "hi", domain.DiscountTypeCustom, tenPointFour, false, nil)
		require.NoError(t, err)

		e := newEngine(t, lo, hi)
		best := e.ApplyBestDiscount(php(t, "0.01"), domain.UserContext{})
		require.NotNil(t, best)
		assert.Equal(t, domain.RuleID("hi"), best.RuleID)
		assert.True(t, best.Amount.IsZero())
	})

	t.Run("Nothing applies", func(t *testing.T) {
		e := newEngine(t, rule(t, "senior", 20, true, cond(t, "age", domain.OperatorGreaterThanOrEqual, 60)))
		assert.Nil(t, e.ApplyBestDiscount(php(t, "100.00"), domain.UserContext{Age: intPtr(30)}))
	})
}

func TestApplyAllApplicableDiscounts(t *testing.T) {
	e := newEngine(t, rule(t, "ten", 10, false), rule(t, "fifteen", 15, false))
	base := php(t, "100.00")
	got := e.ApplyAllApplicableDiscounts(base, domain.UserContext{})
	require.Len(t, got, 2)
	assert.Equal(t, "10.00 PHP", got[0].Amount.String())
	assert.Equal(t, "15.00 PHP", got[1].Amount.String())

	total, err := domain.SumMoney(domain.CurrencyPHP, got[0].Amount, got[1].Amount)
	require.NoError(t, err)
	assert.Equal(t, "25.00 PHP", total.String())
	assert.Equal(t, got[0].AppliedAt, got[1].AppliedAt)
}

func TestCalculateTotalWithDiscountsAndVAT(t *testing.T) {
	t.Run("Senior citizen", func(t *testing.T) {
		e := newEngine(t, rule(t, "senior", 20, true, cond(t, "age", domain.OperatorGreaterThanOrEqual, 60)))
		calc, err := e.CalculateTotalWithDiscountsAndVAT(php(t, "150.00"), domain.UserContext{Age: intPtr(65)}, tax.NewDefaultCalculator())
		require.NoError(t, err)
		assert.Equal(t, "30.00 PHP", calc.TotalDiscountAmount().String())
		assert.True(t, calc.VAT.VATAmount.IsZero())
		assert.Equal(t, "120.00 PHP", calc.FinalAmount.String())
		assert.True(t, calc.FinalAmount.Equals(calc.VAT.TotalAmount))
	})

	t.Run("No discounts", func(t *testing.T) {
		e := newEngine(t)
		calc, err := e.CalculateTotalWithDiscountsAndVAT(php(t, "100.00"), domain.UserContext{}, tax.NewDefaultCalculator())
		require.NoError(t, err)
		assert.Equal(t, "12.00 PHP", calc.VAT.VATAmount.String())
		assert.Equal(t, "112.00 PHP", calc.FinalAmount.String())
	})
}

func TestEngineConcurrentAccess(t *testing.T) {
	e := newEngine(t, rule(t, "base", 10, false))
	churn := rule(t, "churn", 5, false)
	base := php(t, "100.00")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = e.AddRule(churn)
				_ = e.RemoveRule("churn")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := e.ApplyAllApplicableDiscounts(base, domain.UserContext{})
				assert.GreaterOrEqual(t, len(got), 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, e.Len())
}
