// Package strategy holds Strategy implementations that plug into
// internal/backtest's per-bar cycle.
package strategy

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"backtest-engine/internal/backtest"
	"backtest-engine/internal/order"
	"backtest-engine/internal/position"
	"backtest-engine/pkg/types"
)

// lotSize is the share-count quantum trade sizes are rounded down to.
const lotSize = 100

// Crossover submits a market order to go long a symbol on the bar whose
// close first sits above a trailing simple moving average, sized to
// whatever whole lots of 100 shares the current equity affords; it
// submits a linked market order to close the position on the bar the
// close falls back under the average. Either order is priced at that
// bar's close and fills on the symbol's next bar.
type Crossover struct {
	Period int
	logger *slog.Logger
}

// NewCrossover constructs a Crossover strategy averaging over period
// bars. A nil logger falls back to slog.Default().
func NewCrossover(period int, logger *slog.Logger) *Crossover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crossover{Period: period, logger: logger}
}

func (c *Crossover) BarClose(bt *backtest.BackTest, symbol string, bar types.Bar) {
	history := bt.Bars(symbol)
	if len(history) < c.Period {
		return
	}

	ma := movingAverage(history[len(history)-c.Period:])

	if bar.Close.GreaterThan(ma) {
		c.enter(bt, symbol, bar)
		return
	}
	c.exit(bt, symbol, bar)
}

func (c *Crossover) enter(bt *backtest.BackTest, symbol string, bar types.Bar) {
	if len(bt.PosList().SymOpen(symbol)) > 0 {
		return
	}

	baseSize := bt.Equity().Div(bar.Close)
	oddLot := baseSize.Mod(decimal.NewFromInt(lotSize))
	tradeSize := baseSize.Sub(oddLot)
	if tradeSize.LessThan(decimal.NewFromInt(lotSize)) {
		c.logger.Debug("crossover: trade size below one lot, skipping entry", "symbol", symbol, "trade_size", tradeSize, "equity", bt.Equity())
		return
	}

	level := bar.Close
	o, err := order.New(order.Params{Symbol: symbol, Direction: types.Buy, Type: types.Market, Level: &level, Size: tradeSize})
	if err != nil {
		c.logger.Warn("crossover: build entry order", "symbol", symbol, "error", err)
		return
	}
	if err := bt.Book().Add(o); err != nil {
		c.logger.Warn("crossover: add entry order", "symbol", symbol, "error", err)
		return
	}
	c.logger.Info("crossover: crossed above, entering long", "symbol", symbol, "size", tradeSize, "level", level)
}

func (c *Crossover) exit(bt *backtest.BackTest, symbol string, bar types.Bar) {
	for _, pos := range bt.PosList().SymOpen(symbol) {
		link := pos.OrderID
		level := bar.Close
		o, err := order.New(order.Params{Symbol: symbol, Direction: types.Sell, Type: types.Market, Level: &level, Size: pos.Size.Neg(), Link: &link})
		if err != nil {
			c.logger.Warn("crossover: build exit order", "symbol", symbol, "order_id", pos.OrderID, "error", err)
			continue
		}
		if err := bt.Book().Add(o); err != nil {
			c.logger.Warn("crossover: add exit order", "symbol", symbol, "order_id", pos.OrderID, "error", err)
			continue
		}
		c.logger.Info("crossover: crossed below, closing position", "symbol", symbol, "order_id", pos.OrderID)
	}
}

func (c *Crossover) OnClose(p *position.Position) {
	c.logger.Info("crossover: position closed", "symbol", p.Symbol, "order_id", p.OrderID, "value", p.Value())
}

func movingAverage(bars []types.Bar) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range bars {
		sum = sum.Add(b.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(len(bars))))
}
