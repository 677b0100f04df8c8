package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single OHLC observation for a symbol at a timestamp. It is
// immutable after construction except through Merge/MergeValues, which
// aggregate a later observation into the same bar (for callers that
// coalesce multiple raw records into one bar; the parsers in
// internal/feed do not call them).
type Bar struct {
	Timestamp time.Time
	Symbol    string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
}

// NewBar validates low <= open,close <= high and low <= high before
// constructing the bar.
func NewBar(symbol string, ts time.Time, open, high, low, close decimal.Decimal) (Bar, error) {
	if low.GreaterThan(high) ||
		low.GreaterThan(open) || open.GreaterThan(high) ||
		low.GreaterThan(close) || close.GreaterThan(high) {
		return Bar{}, fmt.Errorf("bar %s @ %s: o=%s h=%s l=%s c=%s violates low<=open,close<=high: %w",
			symbol, ts, open, high, low, close, ErrInvalidBar)
	}
	return Bar{Timestamp: ts, Symbol: symbol, Open: open, High: high, Low: low, Close: close}, nil
}

// Merge folds another bar into this one: high becomes the max of the
// two, low becomes the min, close is replaced by other's close.
// Timestamp and open are preserved.
func (b *Bar) Merge(other Bar) {
	if other.High.GreaterThan(b.High) {
		b.High = other.High
	}
	if other.Low.LessThan(b.Low) {
		b.Low = other.Low
	}
	b.Close = other.Close
}

// MergeValues is Merge's raw-value form: high and low are optional
// (nil means "no update"); close is always replaced.
func (b *Bar) MergeValues(close decimal.Decimal, high, low *decimal.Decimal) {
	if high != nil && high.GreaterThan(b.High) {
		b.High = *high
	}
	if low != nil && low.LessThan(b.Low) {
		b.Low = *low
	}
	b.Close = close
}

// Weekday reports the day of week the bar falls on, used by the
// driver's weekend filter.
func (b Bar) Weekday() time.Weekday {
	return b.Timestamp.Weekday()
}
