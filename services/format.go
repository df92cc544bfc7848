package services

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatMoneda renders an amount with thousands separators and exactly
// two decimals, e.g. "$ 1,234,567.89".
func FormatMoneda(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return sign + "$ " + humanize.FormatFloat("#,###.##", amount.Round(2).InexactFloat64())
}

// FormatCantidad prints whole quantities without decimals and fractional
// ones with two.
func FormatCantidad(qty decimal.Decimal) string {
	if qty.IsInteger() {
		return qty.String()
	}
	return qty.StringFixed(2)
}

// FormatPct renders a percentage with one decimal.
func FormatPct(pct decimal.Decimal) string {
	return pct.StringFixed(1) + "%"
}
