package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionCalculation wraps discounts and VAT for one original amount.
// FinalAmount always equals VAT.TotalAmount.
type TransactionCalculation struct {
	OriginalAmount   Money
	AppliedDiscounts []AppliedDiscount
	VAT              VATCalculation
	FinalAmount      Money
}

func NewTransactionCalculation(original Money, discounts []AppliedDiscount, vat VATCalculation) (TransactionCalculation, error) {
	for _, d := range discounts {
		if d.Amount.Currency() != original.Currency() {
			return TransactionCalculation{}, fmt.Errorf("%w: discount %s in %s, amount in %s",
				ErrCurrencyMismatch, d.RuleID, d.Amount.Currency(), original.Currency())
		}
	}
	if vat.TotalAmount.Currency() != original.Currency() {
		return TransactionCalculation{}, fmt.Errorf("%w: vat in %s, amount in %s",
			ErrCurrencyMismatch, vat.TotalAmount.Currency(), original.Currency())
	}
	return TransactionCalculation{
		OriginalAmount:   original,
		AppliedDiscounts: append([]AppliedDiscount(nil), discounts...),
		VAT:              vat,
		FinalAmount:      vat.TotalAmount,
	}, nil
}

// TotalDiscountAmount sums the applied discounts.
func (t TransactionCalculation) TotalDiscountAmount() Money {
	total := t.OriginalAmount.Zero()
	for _, d := range t.AppliedDiscounts {
		// currencies were checked at construction
		total, _ = total.Add(d.Amount)
	}
	return total
}

// SavingsAmount is max(0, original - final).
func (t TransactionCalculation) SavingsAmount() Money {
	savings, _ := t.OriginalAmount.SubtractOrZero(t.FinalAmount)
	return savings
}

type DiscountLine struct {
	RuleID      RuleID
	Name        string
	Type        DiscountType
	Percentage  Percentage
	Amount      Money
	IsVATExempt bool
}

type TransactionBreakdown struct {
	OriginalAmount Money
	Discounts      []DiscountLine
	TotalDiscount  Money
	NetAmount      Money
	VATRate        decimal.Decimal
	VATAmount      Money
	IsVATExempt    bool
	FinalAmount    Money
	Savings        Money
}

func (t TransactionCalculation) Breakdown() TransactionBreakdown {
	lines := make([]DiscountLine, 0, len(t.AppliedDiscounts))
	for _, d := range t.AppliedDiscounts {
		lines = append(lines, DiscountLine{
			RuleID:      d.RuleID,
			Name:        d.Name,
			Type:        d.Type,
			Percentage:  d.Percentage,
			Amount:      d.Amount,
			IsVATExempt: d.IsVATExempt,
		})
	}
	return TransactionBreakdown{
		OriginalAmount: t.OriginalAmount,
		Discounts:      lines,
		TotalDiscount:  t.TotalDiscountAmount(),
		NetAmount:      t.VAT.NetAmount,
		VATRate:        t.VAT.VATRate,
		VATAmount:      t.VAT.VATAmount,
		IsVATExempt:    t.VAT.IsExempt,
		FinalAmount:    t.FinalAmount,
		Savings:        t.SavingsAmount(),
	}
}
