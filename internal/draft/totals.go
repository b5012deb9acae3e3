package draft

import "math"

// Summary holds the derived invoice totals. It is a projection over the
// item list, recomputed on every read so it can never drift from the items
// that produced it.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	TaxTotal float64 `json:"taxTotal"`
	Total    float64 `json:"total"`
}

// Totals derives subtotal, tax and total from the items. Accumulation is
// plain float64; rounding is presentation-only via Round2.
func Totals(items []LineItem) Summary {
	var s Summary
	for _, it := range items {
		line := it.Quantity * it.UnitPrice
		s.Subtotal += line
		s.TaxTotal += line * it.TaxPercent / 100
	}
	s.Total = s.Subtotal + s.TaxTotal
	return s
}

// ItemTotal is the per-item amount: quantity times unit price. Tax is
// accounted for at the invoice level, not per row.
func ItemTotal(it LineItem) float64 {
	return it.Quantity * it.UnitPrice
}

// Round2 rounds to two decimals for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
