package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"backtest-engine/internal/money"
	"backtest-engine/pkg/types"
)

// IntradayParser parses "YYYYMMDD-HHMMSS,SYMBOL,open,high,low,close"
// records. The timestamp is truncated to the hour: chars 0-3 year,
// 4-5 month, 6-7 day, 9-10 hour; minutes and seconds are discarded.
// The symbol field in the record is ignored in favor of the symbol
// parameter, matching how BackTest.AddInput already binds a source to
// one symbol.
func IntradayParser(symbol, line string) (types.Bar, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 6 {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: want 6 fields, got %d: %w", line, len(fields), types.ErrInvalidBar)
	}
	ts := fields[0]
	if len(ts) < 11 {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: timestamp %q too short: %w", line, ts, types.ErrInvalidBar)
	}
	year, err := strconv.Atoi(ts[0:4])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: bad year: %w", line, types.ErrInvalidBar)
	}
	month, err := strconv.Atoi(ts[4:6])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: bad month: %w", line, types.ErrInvalidBar)
	}
	day, err := strconv.Atoi(ts[6:8])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: bad day: %w", line, types.ErrInvalidBar)
	}
	hour, err := strconv.Atoi(ts[9:11])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: bad hour: %w", line, types.ErrInvalidBar)
	}
	when := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)

	open, err := money.Parse(fields[2])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: %w", line, err)
	}
	high, err := money.Parse(fields[3])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: %w", line, err)
	}
	low, err := money.Parse(fields[4])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: %w", line, err)
	}
	close, err := money.Parse(fields[5])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: intraday line %q: %w", line, err)
	}

	return types.NewBar(symbol, when, open, high, low, close)
}
