package position

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backtest-engine/internal/order"
	"backtest-engine/pkg/types"
)

// CloseCallback is invoked once per position transition into Closed
// (never for rewinds).
type CloseCallback func(*Position)

// PositionList holds three ordered collections of positions: Open,
// Closed, and Rewinded.
type PositionList struct {
	Open     []*Position
	Closed   []*Position
	Rewinded []*Position

	closeCB CloseCallback
}

// New returns an empty PositionList. A nil closeCB is replaced with a
// no-op.
func New(closeCB CloseCallback) *PositionList {
	if closeCB == nil {
		closeCB = func(*Position) {}
	}
	return &PositionList{closeCB: closeCB}
}

func (pl *PositionList) find(orderID int64) *Position {
	for _, p := range pl.Open {
		if p.OrderID == orderID {
			return p
		}
	}
	return nil
}

func (pl *PositionList) removeOpen(target *Position) {
	for i, p := range pl.Open {
		if p == target {
			pl.Open = append(pl.Open[:i], pl.Open[i+1:]...)
			return
		}
	}
}

// Add classifies a filled order and either opens a new position or
// closes an existing one.
//
// Opening: o.TriggerParent() == nil && o.Link() == nil. A new Position
// is created with entry = level if supplied else o.Level(), size =
// o.SizeValue(), appended to Open.
//
// Closing: o.Triggered() || o.Link() != nil. The parent position is
// located in Open by trigger parent id (if triggered) or link id (if
// linked). The close order's size must exactly offset the parent's
// size; its level becomes the exit price.
func (pl *PositionList) Add(o *order.Order, ts time.Time, level *decimal.Decimal) (*Position, error) {
	if o.Triggered() || o.Link() != nil {
		var parentID int64
		if o.Triggered() {
			parentID = *o.TriggerParent()
		} else {
			parentID = *o.Link()
		}
		p := pl.find(parentID)
		if p == nil {
			return nil, fmt.Errorf("positionlist: order %d: no open position for parent %d: %w", o.ID, parentID, types.ErrInvalidOrder)
		}
		if !p.Size.Add(o.SizeValue()).IsZero() {
			return nil, fmt.Errorf("positionlist: order %d size %s does not exactly offset position %d size %s: %w",
				o.ID, o.SizeValue(), p.OrderID, p.Size, types.ErrPositionMismatch)
		}
		lvl := o.Level()
		if lvl == nil {
			return nil, fmt.Errorf("positionlist: order %d has no level to close position %d at: %w", o.ID, p.OrderID, types.ErrInvalidLevel)
		}
		exit := *lvl
		p.Mark = exit
		p.Exit = &exit
		pl.removeOpen(p)
		pl.Closed = append(pl.Closed, p)
		pl.closeCB(p)
		return p, nil
	}

	entry := o.Level()
	if level != nil {
		entry = level
	}
	if entry == nil {
		return nil, fmt.Errorf("positionlist: order %d has no level to open at: %w", o.ID, types.ErrInvalidLevel)
	}
	p := &Position{
		Symbol:    o.Symbol,
		EntryTime: ts,
		Entry:     *entry,
		Size:      o.SizeValue(),
		Mark:      *entry,
		OrderID:   o.ID,
	}
	pl.Open = append(pl.Open, p)
	return p, nil
}

// Mark updates every open position whose symbol matches bar: mark is
// set to bar's close and nbars is incremented.
func (pl *PositionList) Mark(bar types.Bar) {
	for _, p := range pl.Open {
		if p.Symbol != bar.Symbol {
			continue
		}
		p.Mark = bar.Close
		p.NBars++
	}
}

// Rewind removes the open position whose opening order id equals
// orderID, appends it to Rewinded, and returns it (or nil if not
// found). The close callback is not invoked.
func (pl *PositionList) Rewind(orderID int64) *Position {
	for i, p := range pl.Open {
		if p.OrderID == orderID {
			pl.Open = append(pl.Open[:i], pl.Open[i+1:]...)
			pl.Rewinded = append(pl.Rewinded, p)
			return p
		}
	}
	return nil
}

// Close sets p's exit (and mark) to markLevel if provided else to p's
// current mark, moves it from Open to Closed, and invokes the close
// callback.
func (pl *PositionList) Close(p *Position, markLevel *decimal.Decimal) {
	exit := p.Mark
	if markLevel != nil {
		exit = *markLevel
	}
	p.Mark = exit
	p.Exit = &exit
	pl.removeOpen(p)
	pl.Closed = append(pl.Closed, p)
	pl.closeCB(p)
}

// CloseAll closes every open position at markLevel (or each one's own
// mark if markLevel is nil).
func (pl *PositionList) CloseAll(markLevel *decimal.Decimal) {
	for _, p := range append([]*Position(nil), pl.Open...) {
		pl.Close(p, markLevel)
	}
}

// NetSize is the sum of sizes of every open position.
func (pl *PositionList) NetSize() decimal.Decimal {
	total := decimal.Zero
	for _, p := range pl.Open {
		total = total.Add(p.Size)
	}
	return total
}

// Value is the sum of Value() over every open position.
func (pl *PositionList) Value() decimal.Decimal {
	total := decimal.Zero
	for _, p := range pl.Open {
		total = total.Add(p.Value())
	}
	return total
}

// SymOpen returns the open positions for a given symbol.
func (pl *PositionList) SymOpen(symbol string) []*Position {
	var out []*Position
	for _, p := range pl.Open {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out
}
