package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func php(t *testing.T, raw string) Money {
	t.Helper()
	m, err := ParseMoney(raw, CurrencyPHP)
	require.NoError(t, err)
	return m
}

func TestNewCurrency(t *testing.T) {
	t.Run("Normalises case", func(t *testing.T) {
		c, err := NewCurrency(" php ")
		assert.NoError(t, err)
		assert.Equal(t, CurrencyPHP, c)
	})

	t.Run("Rejects unknown code", func(t *testing.T) {
		_, err := NewCurrency("ABC")
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})

	t.Run("Rejects wrong length", func(t *testing.T) {
		_, err := NewCurrency("PESO")
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})
}

func TestNewMoney(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		m, err := ParseMoney("150.5", CurrencyPHP)
		assert.NoError(t, err)
		assert.Equal(t, "150.50 PHP", m.String())
		assert.Equal(t, int64(15050), m.Cents())
	})

	t.Run("Non numeric", func(t *testing.T) {
		_, err := ParseMoney("abc", CurrencyPHP)
		assert.ErrorIs(t, err, ErrInvalidMoney)
	})

	t.Run("Negative", func(t *testing.T) {
		_, err := ParseMoney("-1", CurrencyPHP)
		assert.ErrorIs(t, err, ErrNegativeMoney)
	})

	t.Run("Too many fractional digits", func(t *testing.T) {
		_, err := ParseMoney("1.005", CurrencyPHP)
		assert.ErrorIs(t, err, ErrInvalidMoney)
	})

	t.Run("Trailing zeros are fine", func(t *testing.T) {
		m, err := ParseMoney("1.5000", CurrencyPHP)
		assert.NoError(t, err)
		assert.True(t, m.Equals(php(t, "1.50")))
	})

	t.Run("From cents", func(t *testing.T) {
		m, err := MoneyFromCents(12345, CurrencyPHP)
		assert.NoError(t, err)
		assert.True(t, m.Equals(php(t, "123.45")))
	})
}

func TestMoneyArithmetic(t *testing.T) {
	usd, err := ParseMoney("10.00", "USD")
	require.NoError(t, err)

	t.Run("Different currencies fail", func(t *testing.T) {
		_, err := php(t, "10.00").Add(usd)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = php(t, "10.00").Subtract(usd)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = php(t, "10.00").Compare(usd)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("Add is commutative and associative", func(t *testing.T) {
		a, b, c := php(t, "1.10"), php(t, "2.25"), php(t, "3.99")
		ab, _ := a.Add(b)
		ba, _ := b.Add(a)
		assert.True(t, ab.Equals(ba))

		abc1, _ := ab.Add(c)
		bc, _ := b.Add(c)
		abc2, _ := a.Add(bc)
		assert.True(t, abc1.Equals(abc2))
		assert.Equal(t, "7.34 PHP", abc1.String())
	})

	t.Run("Subtract below zero fails", func(t *testing.T) {
		_, err := php(t, "1.00").Subtract(php(t, "1.01"))
		assert.ErrorIs(t, err, ErrNegativeMoney)
	})

	t.Run("SubtractOrZero clamps", func(t *testing.T) {
		m, err := php(t, "1.00").SubtractOrZero(php(t, "5.00"))
		assert.NoError(t, err)
		assert.True(t, m.IsZero())
	})

	t.Run("Multiply rounds half up", func(t *testing.T) {
		m, err := php(t, "0.05").Multiply(decimal.RequireFromString("0.5"))
		assert.NoError(t, err)
		assert.Equal(t, "0.03 PHP", m.String())
	})

	t.Run("Multiply rejects negative factor", func(t *testing.T) {
		_, err := php(t, "1.00").Multiply(decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrInvalidFactor)
	})

	t.Run("Divide", func(t *testing.T) {
		m, err := php(t, "10.00").Divide(decimal.NewFromInt(3))
		assert.NoError(t, err)
		assert.Equal(t, "3.33 PHP", m.String())

		_, err = php(t, "10.00").Divide(decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidFactor)
	})

	t.Run("Operations do not mutate", func(t *testing.T) {
		a := php(t, "5.00")
		_, _ = a.Add(php(t, "1.00"))
		_, _ = a.Multiply(decimal.NewFromInt(3))
		assert.Equal(t, "5.00 PHP", a.String())
	})

	t.Run("SumMoney", func(t *testing.T) {
		total, err := SumMoney(CurrencyPHP)
		assert.NoError(t, err)
		assert.True(t, total.IsZero())

		total, err = SumMoney(CurrencyPHP, php(t, "10.00"), php(t, "15.00"))
		assert.NoError(t, err)
		assert.Equal(t, "25.00 PHP", total.String())
	})
}

func TestPercentage(t *testing.T) {
	t.Run("Bounds", func(t *testing.T) {
		_, err := PercentageFromInt(-1)
		assert.ErrorIs(t, err, ErrInvalidPercentage)
		_, err = PercentageFromInt(101)
		assert.ErrorIs(t, err, ErrInvalidPercentage)
		_, err = PercentageFromInt(0)
		assert.NoError(t, err)
		_, err = PercentageFromInt(100)
		assert.NoError(t, err)
	})

	t.Run("Apply", func(t *testing.T) {
		p, err := PercentageFromInt(20)
		require.NoError(t, err)
		assert.Equal(t, "30.00 PHP", p.Apply(php(t, "150.00")).String())
	})

	t.Run("Apply stays within amount", func(t *testing.T) {
		amounts := []string{"0", "0.01", "0.99", "37.50", "1000000.00"}
		pcts := []string{"0", "0.5", "12.5", "33.33", "99.99", "100"}
		for _, a := range amounts {
			for _, raw := range pcts {
				p, err := ParsePercentage(raw)
				require.NoError(t, err)
				amount := php(t, a)
				applied := p.Apply(amount)
				cmp, err := applied.Compare(amount)
				require.NoError(t, err)
				assert.LessOrEqual(t, cmp, 0, "%s of %s", raw, a)
				assert.False(t, applied.Amount().IsNegative())
			}
		}
	})
}
