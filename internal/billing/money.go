// Package billing holds the pure invoice arithmetic: line totals, tax, due dates
// and invoice number formatting. Nothing in here touches storage or the clock.
package billing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept on every stored amount.
const MoneyPlaces = 2

// PricePlaces is the number of fractional digits kept on unit prices.
const PricePlaces = 3

var (
	// ErrNegativeQuantity is returned by ValidateLine for quantities below zero.
	ErrNegativeQuantity = errors.New("billing: quantity must not be negative")
	// ErrNegativePrice is returned by ValidateLine for unit prices below zero.
	ErrNegativePrice = errors.New("billing: unit price must not be negative")
)

// Line is the priced portion of an invoice line item.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// TaxRates carries the fractional GST and PST rates applied to a subtotal.
type TaxRates struct {
	GST decimal.Decimal `json:"gst"`
	PST decimal.Decimal `json:"pst"`
}

// Totals is the computed money summary of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	GSTAmount decimal.Decimal `json:"gstAmount"`
	PSTAmount decimal.Decimal `json:"pstAmount"`
	Total     decimal.Decimal `json:"total"`
}

// RoundMoney rounds half away from zero to two places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundPrice normalises a unit price to three places.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PricePlaces)
}

// LineItemTotal returns round(quantity * unitPrice, 2).
func LineItemTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(decimal.NewFromInt(int64(quantity)).Mul(unitPrice))
}

// Subtotal sums the individually rounded line totals and rounds the sum again.
func Subtotal(lines ...Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(LineItemTotal(line.Quantity, line.UnitPrice))
	}
	return RoundMoney(sum)
}

// TaxAmount returns round(subtotal * rate, 2).
func TaxAmount(subtotal, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(subtotal.Mul(rate))
}

// Total returns round(subtotal + gst + pst, 2).
func Total(subtotal, gstAmount, pstAmount decimal.Decimal) decimal.Decimal {
	return RoundMoney(subtotal.Add(gstAmount).Add(pstAmount))
}

// InvoiceTotals computes the subtotal first, then each tax from that rounded
// subtotal, then the grand total. Both taxes are taken from the subtotal; PST is
// never applied on top of GST.
func InvoiceTotals(lines []Line, rates TaxRates) Totals {
	subtotal := Subtotal(lines...)
	gst := TaxAmount(subtotal, rates.GST)
	pst := TaxAmount(subtotal, rates.PST)
	return Totals{
		Subtotal:  subtotal,
		GSTAmount: gst,
		PSTAmount: pst,
		Total:     Total(subtotal, gst, pst),
	}
}

// ValidateLine rejects negative quantities or prices. The arithmetic itself does
// not depend on it.
func ValidateLine(quantity int, unitPrice decimal.Decimal) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	if unitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
