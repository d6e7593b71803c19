package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"parkspot-backend/internal/domain"
)

var ErrInvalidRate = errors.New("tax: VAT rate must be between 0 and 1")

// DefaultRate is the 12% standard VAT rate.
var DefaultRate = decimal.RequireFromString("0.12")

type Calculator struct {
	rate decimal.Decimal
}

func NewCalculator(rate decimal.Decimal) (*Calculator, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	return &Calculator{rate: rate}, nil
}

func NewDefaultCalculator() *Calculator {
	return &Calculator{rate: DefaultRate}
}

func (c *Calculator) Rate() decimal.Decimal { return c.rate }

// Calculate applies the configured rate. See CalculateWithCustomRate.
func (c *Calculator) Calculate(amount domain.Money, discounts []domain.AppliedDiscount) (domain.VATCalculation, error) {
	return c.CalculateWithCustomRate(amount, discounts, c.rate)
}

// CalculateWithCustomRate taxes amount less the applied discounts, clamped at
// zero. A single VAT-exempt discount exempts the whole amount.
func (c *Calculator) CalculateWithCustomRate(amount domain.Money, discounts []domain.AppliedDiscount, rate decimal.Decimal) (domain.VATCalculation, error) {
	if err := validateRate(rate); err != nil {
		return domain.VATCalculation{}, err
	}

	totalDiscount := amount.Zero()
	var exemptions []domain.AppliedDiscount
	for _, d := range discounts {
		var err error
		totalDiscount, err = totalDiscount.Add(d.Amount)
		if err != nil {
			return domain.VATCalculation{}, fmt.Errorf("failed to total discounts: %w", err)
		}
		if d.IsVATExempt {
			exemptions = append(exemptions, d)
		}
	}

	net, err := amount.SubtractOrZero(totalDiscount)
	if err != nil {
		return domain.VATCalculation{}, err
	}

	if len(exemptions) > 0 {
		return domain.NewVATCalculation(net, net.Zero(), decimal.Zero, true, exemptions)
	}

	vat, err := net.Multiply(rate)
	if err != nil {
		return domain.VATCalculation{}, err
	}
	return domain.NewVATCalculation(net, vat, rate, false, nil)
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: got %s", ErrInvalidRate, rate.String())
	}
	return nil
}
