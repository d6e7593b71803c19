package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// VATCalculation is the tax outcome for one net amount.
type VATCalculation struct {
	NetAmount        Money
	VATAmount        Money
	TotalAmount      Money
	VATRate          decimal.Decimal
	IsExempt         bool
	ExemptionReasons []AppliedDiscount
}

// NewVATCalculation derives the total and enforces total = net + vat.
func NewVATCalculation(net, vat Money, rate decimal.Decimal, exempt bool, reasons []AppliedDiscount) (VATCalculation, error) {
	total, err := net.Add(vat)
	if err != nil {
		return VATCalculation{}, fmt.Errorf("%w: %v", ErrInvalidCalculation, err)
	}
	if exempt && (!vat.IsZero() || !rate.IsZero()) {
		return VATCalculation{}, fmt.Errorf("%w: exempt calculation carries VAT", ErrInvalidCalculation)
	}
	return VATCalculation{
		NetAmount:        net,
		VATAmount:        vat,
		TotalAmount:      total,
		VATRate:          rate,
		IsExempt:         exempt,
		ExemptionReasons: append([]AppliedDiscount(nil), reasons...),
	}, nil
}
