// Package money sets up the process-wide Decimal precision the
// kernel relies on. All prices, sizes, values, and equity flow through
// github.com/shopspring/decimal.Decimal — never float64 — so that
// arithmetic affecting P&L never loses precision to a binary
// floating-point representation.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places the engine rounds to and
// the division precision shopspring/decimal falls back to when a
// division has no exact decimal representation. It approximates the
// "six significant digits" process-wide precision setting: decimal.
// Decimal tracks decimal places, not significant digits, so six
// decimal places is the closest direct mapping for FX-style prices.
var Precision int32 = 6

// Init sets the process-wide precision. Must be called once before
// any computation and held constant for the duration of a run.
func Init(precision int32) {
	Precision = precision
	decimal.DivisionPrecision = int(precision)
}

// Round rounds d to the configured precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// Parse parses a decimal literal, wrapping shopspring's error so
// callers can tell a malformed numeric field from other parse errors.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return d, nil
}
