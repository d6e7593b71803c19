package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percentage is a value in [0, 100].
type Percentage struct {
	value decimal.Decimal
}

func NewPercentage(value decimal.Decimal) (Percentage, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Percentage{}, fmt.Errorf("%w: got %s", ErrInvalidPercentage, value.String())
	}
	return Percentage{value: value}, nil
}

func ParsePercentage(raw string) (Percentage, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Percentage{}, fmt.Errorf("%w: %q is not numeric", ErrInvalidPercentage, raw)
	}
	return NewPercentage(value)
}

func PercentageFromInt(value int64) (Percentage, error) {
	return NewPercentage(decimal.NewFromInt(value))
}

func (p Percentage) Value() decimal.Decimal { return p.value }

// Fraction returns value/100.
func (p Percentage) Fraction() decimal.Decimal { return p.value.Div(hundred) }

func (p Percentage) IsZero() bool { return p.value.IsZero() }

func (p Percentage) Equals(other Percentage) bool { return p.value.Equal(other.value) }

// Apply returns amount * value / 100 rounded half-up to the cent.
func (p Percentage) Apply(amount Money) Money {
	return Money{amount: amount.amount.Mul(p.value).Div(hundred).Round(moneyScale), currency: amount.currency}
}

func (p Percentage) String() string { return p.value.String() + "%" }
