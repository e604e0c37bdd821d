// Package billing holds the money rules shared by proposals, invoices and
// payments: tax, rounding, minor units and public document numbers.
package billing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the monetary breakdown stored on an invoice.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	TotalTax   float64 `json:"totalTax"`
	Total      float64 `json:"total"`
	AmountPaid float64 `json:"amountPaid"`
	AmountDue  float64 `json:"amountDue"`
}

// Round2 rounds half away from zero to two decimal places.
func Round2(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// Compute derives tax, total and amount due from a tax-exclusive subtotal.
// A negative subtotal is treated as zero and amount due never goes below zero.
func Compute(subtotal, taxRatePct, amountPaid float64) Totals {
	sub := decimal.NewFromFloat(subtotal).Round(2)
	if sub.IsNegative() {
		sub = decimal.Zero
	}
	tax := sub.Mul(decimal.NewFromFloat(taxRatePct)).Div(hundred).Round(2)
	total := sub.Add(tax).Round(2)
	paid := decimal.NewFromFloat(amountPaid).Round(2)

	return Totals{
		Subtotal:   sub.InexactFloat64(),
		TotalTax:   tax.InexactFloat64(),
		Total:      total.InexactFloat64(),
		AmountPaid: paid.InexactFloat64(),
		AmountDue:  amountDue(total, paid).InexactFloat64(),
	}
}

// AmountDue returns max(0, total - paid) rounded to cents.
func AmountDue(total, paid float64) float64 {
	return amountDue(decimal.NewFromFloat(total), decimal.NewFromFloat(paid)).InexactFloat64()
}

func amountDue(total, paid decimal.Decimal) decimal.Decimal {
	due := total.Sub(paid).Round(2)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// NormalizeSubtotal accepts amounts that were sent as integer cents. Integral
// values of 1000 or more are read as minor units.
func NormalizeSubtotal(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	d := decimal.NewFromFloat(raw)
	if d.IsInteger() && raw >= 1000 {
		return d.Div(hundred).Round(2).InexactFloat64()
	}
	return d.Round(2).InexactFloat64()
}

// ToMinorUnits converts a major-unit amount into gateway cents.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts gateway cents into a major-unit amount.
func FromMinorUnits(cents int64) float64 {
	return decimal.NewFromInt(cents).Div(hundred).Round(2).InexactFloat64()
}

const publicNumberBase = 100000

// PublicNumber derives the customer-facing document number from a numeric
// record id. Non-numeric ids yield "".
func PublicNumber(recordID string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(recordID), 10, 64)
	if err != nil || n < 0 {
		return ""
	}
	return strconv.FormatInt(publicNumberBase+n, 10)
}
