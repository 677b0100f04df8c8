// Package backtest implements the BackTest driver: it sequences bars
// across symbols, dispatches fills through the order book and
// position list, marks open positions, and tracks equity. This is the
// kernel's entry point — SPEC_FULL.md §4.5.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"backtest-engine/internal/feed"
	"backtest-engine/internal/order"
	"backtest-engine/internal/orderbook"
	"backtest-engine/internal/position"
	"backtest-engine/pkg/types"
)

// Strategy is the driver's pair of override points. BarClose is
// called once per bar, after fills and marks, and is handed the
// BackTest itself so it can submit new orders (bt.Book().Add(...)) and
// inspect state (bt.PosList().SymOpen, bt.Equity(), bt.Bars(symbol)).
// OnClose is called once per position closed.
type Strategy interface {
	BarClose(bt *BackTest, symbol string, bar types.Bar)
	OnClose(p *position.Position)
}

type noopStrategy struct{}

func (noopStrategy) BarClose(*BackTest, string, types.Bar) {}
func (noopStrategy) OnClose(*position.Position)            {}

// EquityPoint is one row of the equity curve: total equity (realized
// plus unrealized) as of a bar-round.
type EquityPoint struct {
	Timestamp time.Time
	Equity    decimal.Decimal
}

// ProgressEvent is a dashboard-only snapshot of engine state,
// broadcast after each bar-round when a progress sink is configured.
// It carries no kernel semantics of its own.
type ProgressEvent struct {
	Timestamp       time.Time
	Equity          decimal.Decimal
	OpenPositions   int
	ClosedPositions int
}

type inputSource struct {
	Symbol string
	Source feed.LineSource
	Parser feed.ParseFunc
}

// BackTest holds the order book and position list for one run, and
// orchestrates the per-bar cycle across every registered input.
type BackTest struct {
	equity    decimal.Decimal
	minEquity decimal.Decimal
	maxEquity decimal.Decimal
	eqVals    []EquityPoint

	bars map[string][]types.Bar

	book    *orderbook.OrderBook
	posList *position.PositionList

	inputs   []inputSource
	strategy Strategy
	logger   *slog.Logger
	progress chan<- ProgressEvent
}

// New constructs a BackTest with the given starting equity. A nil
// strategy is replaced with a no-op; a nil logger with slog.Default().
func New(initialEquity decimal.Decimal, strategy Strategy, logger *slog.Logger) *BackTest {
	if strategy == nil {
		strategy = noopStrategy{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	bt := &BackTest{
		equity:    initialEquity,
		minEquity: initialEquity,
		maxEquity: initialEquity,
		bars:      make(map[string][]types.Bar),
		book:      orderbook.New(),
		strategy:  strategy,
		logger:    logger,
	}
	bt.posList = position.New(bt.closeCB)
	return bt
}

func (bt *BackTest) closeCB(p *position.Position) {
	bt.strategy.OnClose(p)
	bt.equity = bt.equity.Add(p.Value())
	if bt.equity.GreaterThan(bt.maxEquity) {
		bt.maxEquity = bt.equity
	}
	if bt.equity.LessThan(bt.minEquity) {
		bt.minEquity = bt.equity
	}
	bt.logger.Debug("position closed", "symbol", p.Symbol, "order_id", p.OrderID, "value", p.Value(), "equity", bt.equity)
}

// SetProgressSink wires a channel the driver publishes ProgressEvents
// to after each bar-round, non-blocking (drop on full, mirroring the
// teacher's risk.Manager.Report idiom). Intended for a dashboard.
func (bt *BackTest) SetProgressSink(ch chan<- ProgressEvent) {
	bt.progress = ch
}

// Equity returns current realized equity (excludes unrealized P&L on
// open positions — add PosList().Value() for the mark-to-market
// total).
func (bt *BackTest) Equity() decimal.Decimal { return bt.equity }

// MinEquity returns the low watermark.
func (bt *BackTest) MinEquity() decimal.Decimal { return bt.minEquity }

// MaxEquity returns the high watermark.
func (bt *BackTest) MaxEquity() decimal.Decimal { return bt.maxEquity }

// EqVals returns the recorded equity curve.
func (bt *BackTest) EqVals() []EquityPoint { return bt.eqVals }

// Bars returns the bar history recorded for symbol so far.
func (bt *BackTest) Bars(symbol string) []types.Bar { return bt.bars[symbol] }

// Book returns the driver's order book.
func (bt *BackTest) Book() *orderbook.OrderBook { return bt.book }

// PosList returns the driver's position list.
func (bt *BackTest) PosList() *position.PositionList { return bt.posList }

// AddInput registers a bar stream bound to symbol.
func (bt *BackTest) AddInput(symbol string, source feed.LineSource, parser feed.ParseFunc) {
	bt.inputs = append(bt.inputs, inputSource{Symbol: symbol, Source: source, Parser: parser})
	if _, ok := bt.bars[symbol]; !ok {
		bt.bars[symbol] = nil
	}
}

// Run round-robins over registered inputs: one line read per input per
// round, parsed into a Bar, dispatched via NextBar. Equity is recorded
// once per complete round. Run returns as soon as any input yields an
// empty line (end of stream) — leaving that round's equity point
// unrecorded, since not every input necessarily advanced that round.
func (bt *BackTest) Run(ctx context.Context) error {
	if len(bt.inputs) == 0 {
		return nil
	}
	for {
		var lastBar types.Bar
		for _, in := range bt.inputs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			line, err := in.Source.ReadLine()
			if err != nil {
				return fmt.Errorf("backtest: read %s: %w", in.Symbol, err)
			}
			if strings.TrimSpace(line) == "" {
				return nil
			}
			bar, err := in.Parser(in.Symbol, line)
			if err != nil {
				return fmt.Errorf("backtest: parse %s bar %q: %w", in.Symbol, line, err)
			}
			if err := bt.NextBar(in.Symbol, bar); err != nil {
				return err
			}
			lastBar = bar
		}
		bt.updateEqVals(lastBar)
	}
}

func (bt *BackTest) updateEqVals(bar types.Bar) {
	point := EquityPoint{Timestamp: bar.Timestamp, Equity: bt.equity.Add(bt.posList.Value())}
	bt.eqVals = append(bt.eqVals, point)
	if bt.progress != nil {
		evt := ProgressEvent{
			Timestamp:       point.Timestamp,
			Equity:          point.Equity,
			OpenPositions:   len(bt.posList.Open),
			ClosedPositions: len(bt.posList.Closed),
		}
		select {
		case bt.progress <- evt:
		default:
			bt.logger.Warn("progress sink full, dropping event")
		}
	}
}

// NextBar runs the per-bar cycle: weekend filter, get fills, resolve
// in-bar conflicts, apply surviving fills, mark to market, invoke the
// strategy hook, and record the bar.
func (bt *BackTest) NextBar(symbol string, bar types.Bar) error {
	if wd := bar.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return nil
	}

	fills := bt.resolveConflicts(bt.book.GetFills(bar))

	for _, o := range fills {
		if _, err := bt.posList.Add(o, bar.Timestamp, nil); err != nil {
			return err
		}
		bt.book.Fill(o)
	}

	bt.posList.Mark(bar)
	bt.strategy.BarClose(bt, symbol, bar)
	bt.bars[symbol] = append(bt.bars[symbol], bar)
	return nil
}

// resolveConflicts implements SPEC_FULL.md §4's in-bar conflict
// resolution, generalized to N-way collisions (spec.md §9's open
// question): it iterates a fixed snapshot of the candidate fills,
// skipping any order a previous iteration already excised as someone
// else's dup, so a group of mutually cancelling orders is rewound and
// cancelled exactly once rather than reprocessed.
func (bt *BackTest) resolveConflicts(fills []*order.Order) []*order.Order {
	if len(fills) <= 1 {
		return fills
	}

	working := append([]*order.Order(nil), fills...)
	snapshot := append([]*order.Order(nil), fills...)

	contains := func(list []*order.Order, id int64) bool {
		for _, o := range list {
			if o.ID == id {
				return true
			}
		}
		return false
	}
	removeID := func(list []*order.Order, id int64) []*order.Order {
		out := make([]*order.Order, 0, len(list))
		for _, o := range list {
			if o.ID != id {
				out = append(out, o)
			}
		}
		return out
	}
	containsCancelOf := func(cancels []int64, id int64) bool {
		for _, c := range cancels {
			if c == id {
				return true
			}
		}
		return false
	}

	for _, o := range snapshot {
		if !contains(working, o.ID) {
			continue
		}
		var dups []*order.Order
		for _, other := range working {
			if other.ID == o.ID {
				continue
			}
			if containsCancelOf(other.Cancels(), o.ID) {
				dups = append(dups, other)
			}
		}
		if len(dups) == 0 {
			continue
		}
		if o.Triggered() {
			if tp := o.TriggerParent(); tp != nil {
				bt.posList.Rewind(*tp)
			}
		}
		bt.book.Cancel(o.ID)
		working = removeID(working, o.ID)
		for _, d := range dups {
			bt.book.Cancel(d.ID)
			working = removeID(working, d.ID)
		}
	}
	return working
}
