package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"backtest-engine/internal/money"
	"backtest-engine/pkg/types"
)

// DailyParser parses Yahoo-like daily records:
// "YYYY-MM-DD,open,high,low,close,volume,adj_close". Hour is zero;
// the symbol is supplied externally since the file carries none.
// Volume and adj_close are parsed for validation but discarded from
// the resulting Bar.
func DailyParser(symbol, line string) (types.Bar, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 7 {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: want 7 fields, got %d: %w", line, len(fields), types.ErrInvalidBar)
	}
	dateParts := strings.Split(fields[0], "-")
	if len(dateParts) != 3 {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: bad date %q: %w", line, fields[0], types.ErrInvalidBar)
	}
	year, err := strconv.Atoi(dateParts[0])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: bad year: %w", line, types.ErrInvalidBar)
	}
	month, err := strconv.Atoi(dateParts[1])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: bad month: %w", line, types.ErrInvalidBar)
	}
	day, err := strconv.Atoi(dateParts[2])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: bad day: %w", line, types.ErrInvalidBar)
	}
	when := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

	open, err := money.Parse(fields[1])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: %w", line, err)
	}
	high, err := money.Parse(fields[2])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: %w", line, err)
	}
	low, err := money.Parse(fields[3])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: %w", line, err)
	}
	close, err := money.Parse(fields[4])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: %w", line, err)
	}
	if _, err := money.Parse(fields[5]); err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: bad volume: %w", line, err)
	}
	if _, err := money.Parse(fields[6]); err != nil {
		return types.Bar{}, fmt.Errorf("feed: daily line %q: bad adj_close: %w", line, err)
	}

	return types.NewBar(symbol, when, open, high, low, close)
}
