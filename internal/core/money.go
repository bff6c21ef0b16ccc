package core

import (
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayCurrency is the ISO code amounts are rendered in. Values are never
// converted; the code only selects the symbol and separators.
const DisplayCurrency = money.CNY

// FormatCurrency renders v for display, rounded to the currency's minor
// unit. Aggregation never rounds; only this function does.
func FormatCurrency(v float64) string {
	return FormatCurrencyIn(v, DisplayCurrency)
}

// FormatCurrencyIn renders v using the formatting rules of the given ISO code.
func FormatCurrencyIn(v float64, code string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	// money.New never returns a nil currency, unknown codes get a default one
	cur := *money.New(0, code).Currency()
	minor := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
