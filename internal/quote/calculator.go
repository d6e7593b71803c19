package quote

import (
	"fmt"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/pricing"
)

type RateResolver interface {
	Resolve(chain domain.PricingChain, window domain.TimeRange, vehicle domain.VehicleType) (pricing.RateQuote, error)
}

type DiscountApplier interface {
	ApplyAllApplicableDiscounts(amount domain.Money, user domain.UserContext) []domain.AppliedDiscount
}

type VATCalculator interface {
	Calculate(amount domain.Money, discounts []domain.AppliedDiscount) (domain.VATCalculation, error)
}

// BookingCost is the payable breakdown for one booking request.
type BookingCost struct {
	BaseAmount     domain.Money
	DiscountAmount domain.Money
	VATAmount      domain.Money
	TotalAmount    domain.Money
	Discounts      []domain.AppliedDiscount
	Rate           pricing.RateQuote
	Transaction    domain.TransactionCalculation
}

type Calculator struct {
	resolver  RateResolver
	discounts DiscountApplier
	vat       VATCalculator
}

func NewCalculator(resolver RateResolver, discounts DiscountApplier, vat VATCalculator) *Calculator {
	return &Calculator{resolver: resolver, discounts: discounts, vat: vat}
}

// CalculateBookingCost resolves the base amount, applies every matching
// discount against it and taxes the remainder. DiscountAmount is the
// discount actually granted, so it never exceeds BaseAmount.
func (c *Calculator) CalculateBookingCost(chain domain.PricingChain, window domain.TimeRange, vehicle domain.VehicleType, user domain.UserContext) (BookingCost, error) {
	rate, err := c.resolver.Resolve(chain, window, vehicle)
	if err != nil {
		return BookingCost{}, err
	}

	discounts := c.discounts.ApplyAllApplicableDiscounts(rate.BaseAmount, user)
	vat, err := c.vat.Calculate(rate.BaseAmount, discounts)
	if err != nil {
		return BookingCost{}, fmt.Errorf("failed to calculate VAT: %w", err)
	}

	tx, err := domain.NewTransactionCalculation(rate.BaseAmount, discounts, vat)
	if err != nil {
		return BookingCost{}, err
	}

	granted, err := rate.BaseAmount.SubtractOrZero(vat.NetAmount)
	if err != nil {
		return BookingCost{}, err
	}

	return BookingCost{
		BaseAmount:     rate.BaseAmount,
		DiscountAmount: granted,
		VATAmount:      vat.VATAmount,
		TotalAmount:    tx.FinalAmount,
		Discounts:      tx.AppliedDiscounts,
		Rate:           rate,
		Transaction:    tx,
	}, nil
}
