package utils

import (
	"github.com/shopspring/decimal"
)

// LineAmount is one priced invoice row as the calculator sees it.
// TaxRate is fractional (0.13 means 13%).
type LineAmount struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

// TotalAmounts is the derived subtotal/tax/grand-total of an invoice.
type TotalAmounts struct {
	SubTotal   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

// CalculateInvoiceTotals computes, per line, base = quantity * unitPrice and
// lineTax = base * taxRate, sums them exactly, and rounds each aggregate to
// 2 fractional digits. Rounding happens ONLY at the aggregate level, never per
// line, and uses round-half-away-from-zero (decimal.Round semantics). This is
// the pinned rounding rule for the whole system.
//
// Negative quantities and prices are allowed (credit adjustments). The function
// is pure: same input, same output, no side effects.
func CalculateInvoiceTotals(items []LineAmount) TotalAmounts {
	subTotal := decimal.Zero
	tax := decimal.Zero

	for _, item := range items {
		lineBase := item.Quantity.Mul(item.UnitPrice)
		subTotal = subTotal.Add(lineBase)
		tax = tax.Add(lineBase.Mul(item.TaxRate))
	}

	return TotalAmounts{
		SubTotal:   subTotal.Round(2),
		Tax:        tax.Round(2),
		GrandTotal: subTotal.Add(tax).Round(2),
	}
}
