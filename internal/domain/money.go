package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const moneyScale = 2

type Currency string

const CurrencyPHP Currency = "PHP"

// NewCurrency validates an ISO 4217 code and returns it upper-cased.
func NewCurrency(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	unit, err := currency.ParseISO(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return Currency(unit.String()), nil
}

// Money is an immutable non-negative amount with at most two fractional digits.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

func NewMoney(amount decimal.Decimal, cur Currency) (Money, error) {
	code, err := NewCurrency(string(cur))
	if err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrNegativeMoney, amount.String())
	}
	if !amount.Equal(amount.Round(moneyScale)) {
		return Money{}, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidMoney, amount.String(), moneyScale)
	}
	return Money{amount: amount.Round(moneyScale), currency: code}, nil
}

// ParseMoney builds Money from a decimal string such as "150.00".
func ParseMoney(raw string, cur Currency) (Money, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not numeric", ErrInvalidMoney, raw)
	}
	return NewMoney(amount, cur)
}

func MoneyFromCents(cents int64, cur Currency) (Money, error) {
	return NewMoney(decimal.New(cents, -moneyScale), cur)
}

func ZeroMoney(cur Currency) (Money, error) {
	return NewMoney(decimal.Zero, cur)
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return m.amount.Shift(moneyScale).IntPart() }

// Zero returns a zero amount in the same currency.
func (m Money) Zero() Money { return Money{amount: decimal.Zero, currency: m.currency} }

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Compare returns -1, 0 or 1. Amounts in different currencies are not comparable.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeMoney, m.amount.StringFixed(moneyScale), other.amount.StringFixed(moneyScale))
	}
	return Money{amount: result, currency: m.currency}, nil
}

// SubtractOrZero subtracts other and clamps the result at zero.
func (m Money) SubtractOrZero(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return m.Zero(), nil
	}
	return Money{amount: result, currency: m.currency}, nil
}

// Multiply scales the amount, rounding half-up to the cent.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, fmt.Errorf("%w: negative factor %s", ErrInvalidFactor, factor.String())
	}
	return m.scale(factor), nil
}

// Divide splits the amount, rounding half-up to the cent.
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if !divisor.IsPositive() {
		return Money{}, fmt.Errorf("%w: divisor must be positive, got %s", ErrInvalidFactor, divisor.String())
	}
	return Money{amount: m.amount.Div(divisor).Round(moneyScale), currency: m.currency}, nil
}

func (m Money) String() string {
	return m.amount.StringFixed(moneyScale) + " " + string(m.currency)
}

func (m Money) scale(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).Round(moneyScale), currency: m.currency}
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

// SumMoney adds amounts; an empty list yields zero in the fallback currency.
func SumMoney(fallback Currency, amounts ...Money) (Money, error) {
	total, err := ZeroMoney(fallback)
	if err != nil {
		return Money{}, err
	}
	for _, amount := range amounts {
		total, err = total.Add(amount)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
