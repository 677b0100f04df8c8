package report

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"backtest-engine/internal/backtest"
)

// Summary aggregates win/loss statistics over a run's closed
// positions.
type Summary struct {
	Open     int
	Closed   int
	Rewinded int

	Wins     int
	Losses   int
	WinRate  decimal.Decimal
	TotalPnL decimal.Decimal
	AvgWin   decimal.Decimal
	AvgLoss  decimal.Decimal

	MinEquity decimal.Decimal
	MaxEquity decimal.Decimal
	EndEquity decimal.Decimal
}

// Summarize computes run statistics from a BackTest's final state.
// Call it after PosList().CloseAll so every position has an Exit.
func Summarize(bt *backtest.BackTest) Summary {
	pl := bt.PosList()
	s := Summary{
		Open:      len(pl.Open),
		Closed:    len(pl.Closed),
		Rewinded:  len(pl.Rewinded),
		MinEquity: bt.MinEquity(),
		MaxEquity: bt.MaxEquity(),
		EndEquity: bt.Equity(),
	}

	var winSum, lossSum decimal.Decimal
	for _, p := range pl.Closed {
		v := p.Value()
		s.TotalPnL = s.TotalPnL.Add(v)
		if v.IsPositive() {
			s.Wins++
			winSum = winSum.Add(v)
		} else if v.IsNegative() {
			s.Losses++
			lossSum = lossSum.Add(v)
		}
	}
	if s.Wins > 0 {
		s.AvgWin = winSum.Div(decimal.NewFromInt(int64(s.Wins)))
	}
	if s.Losses > 0 {
		s.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(s.Losses)))
	}
	if n := s.Wins + s.Losses; n > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(decimal.NewFromInt(int64(n)))
	}

	return s
}

// LogSummary writes the summary to logger at info level, in the
// teacher's structured-field style.
func LogSummary(logger *slog.Logger, s Summary) {
	logger.Info("backtest summary",
		"open", s.Open,
		"closed", s.Closed,
		"rewinded", s.Rewinded,
		"wins", s.Wins,
		"losses", s.Losses,
		"win_rate", s.WinRate,
		"total_pnl", s.TotalPnL,
		"avg_win", s.AvgWin,
		"avg_loss", s.AvgLoss,
		"min_equity", s.MinEquity,
		"max_equity", s.MaxEquity,
		"end_equity", s.EndEquity,
	)
}
