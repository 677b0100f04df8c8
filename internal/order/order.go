// Package order implements the Order model: a mutable state machine
// identified by a process-unique monotonic id, with parent/child
// relationships expressed by id (triggers, OCO cancels, link-closes)
// rather than by pointer, so the graph survives moves between an
// OrderBook's live and done partitions.
package order

import (
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"backtest-engine/pkg/types"
)

var idCounter int64

func nextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// Params is the set of fields an Order is constructed with. Direction
// and Type are required; Level is optional only for MARKET orders
// used purely to trigger/cancel (Validate rejects an order with no
// level; OrderBook.Add does not call Validate). Size, if non-zero, is
// applied through SetSize so the BUY/SELL sign invariant is checked
// at construction time too.
type Params struct {
	Symbol        string
	Direction     types.Side
	Type          types.OrderType
	Level         *decimal.Decimal
	Size          decimal.Decimal
	TriggerParent *int64
	Link          *int64
}

// Order is a single resting or historical order. Zero value is not
// meaningful; use New.
type Order struct {
	ID        int64
	Symbol    string
	Direction types.Side
	Type      types.OrderType

	level *decimal.Decimal
	size  decimal.Decimal
	state types.OrderState

	triggers      []int64
	triggerParent *int64
	cancels       []int64
	cancelParent  *int64
	link          *int64
}

// New constructs an order in state UNSUB. If p.Size is the zero value
// it is left unset (no legitimate order has size exactly zero); call
// SetSize explicitly to assign one later.
func New(p Params) (*Order, error) {
	o := &Order{
		ID:            nextID(),
		Symbol:        p.Symbol,
		Direction:     p.Direction,
		Type:          p.Type,
		level:         p.Level,
		state:         types.Unsub,
		triggerParent: p.TriggerParent,
		link:          p.Link,
	}
	if !p.Size.IsZero() {
		if err := o.SetSize(p.Size); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Level returns the order's price level, or nil if unset (MARKET
// orders built purely to trigger/cancel may never get one).
func (o *Order) Level() *decimal.Decimal {
	return o.level
}

// SetLevel assigns the order's price level.
func (o *Order) SetLevel(level decimal.Decimal) {
	o.level = &level
}

// SizeValue returns the order's signed size.
func (o *Order) SizeValue() decimal.Decimal {
	return o.size
}

// SetSize assigns size, enforcing that BUY orders carry size >= 0 and
// SELL orders carry size <= 0. Direction must already be set.
func (o *Order) SetSize(sz decimal.Decimal) error {
	switch o.Direction {
	case types.Buy:
		if sz.IsNegative() {
			return fmt.Errorf("order %d: buy order size %s must be >= 0: %w", o.ID, sz, types.ErrInvalidOrder)
		}
	case types.Sell:
		if sz.IsPositive() {
			return fmt.Errorf("order %d: sell order size %s must be <= 0: %w", o.ID, sz, types.ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("order %d: direction must be BUY or SELL before setting size: %w", o.ID, types.ErrInvalidOrder)
	}
	o.size = sz
	return nil
}

// State returns the order's current lifecycle state.
func (o *Order) State() types.OrderState {
	return o.state
}

// SetState assigns state, rejecting any value outside the enumerated
// set.
func (o *Order) SetState(s types.OrderState) error {
	if !s.Valid() {
		return fmt.Errorf("order %d: unknown state %d: %w", o.ID, int(s), types.ErrInvalidState)
	}
	o.state = s
	return nil
}

// Triggers returns the ids of child orders that become ACTIVE when
// this order fills.
func (o *Order) Triggers() []int64 {
	return o.triggers
}

// TriggerParent returns the id of the parent order that must fill
// before this order becomes ACTIVE, or nil.
func (o *Order) TriggerParent() *int64 {
	return o.triggerParent
}

// Triggered reports whether this order is the child of some parent
// (i.e. has a trigger parent).
func (o *Order) Triggered() bool {
	return o.triggerParent != nil
}

// Cancels returns the ids of orders to cancel when this order fills.
func (o *Order) Cancels() []int64 {
	return o.cancels
}

// CancelParent returns the id of the order that caused this order's
// cancellation, or nil.
func (o *Order) CancelParent() *int64 {
	return o.cancelParent
}

// Link returns the id of the position-opening order this order, if
// filled, closes, or nil.
func (o *Order) Link() *int64 {
	return o.link
}

// Cancel records that this order cancels each of others when it
// fills: appends each other's id to this order's cancels and sets
// each other's cancel parent to this order's id. Requires at least
// one argument; any nil argument is rejected.
func (o *Order) Cancel(others ...*Order) error {
	if len(others) == 0 {
		return fmt.Errorf("order %d: cancel requires at least one order: %w", o.ID, types.ErrInvalidOrder)
	}
	for _, other := range others {
		if other == nil {
			return fmt.Errorf("order %d: cancel passed a nil order: %w", o.ID, types.ErrInvalidOrder)
		}
		o.cancels = append(o.cancels, other.ID)
		parent := o.ID
		other.cancelParent = &parent
	}
	return nil
}

// Trigger records that each of children becomes ACTIVE when this
// order fills: appends each child's id to this order's triggers and
// sets each child's trigger parent to this order's id.
func (o *Order) Trigger(children ...*Order) error {
	if len(children) == 0 {
		return fmt.Errorf("order %d: trigger requires at least one order: %w", o.ID, types.ErrInvalidOrder)
	}
	for _, c := range children {
		if c == nil {
			return fmt.Errorf("order %d: trigger passed a nil order: %w", o.ID, types.ErrInvalidOrder)
		}
		o.triggers = append(o.triggers, c.ID)
		parent := o.ID
		c.triggerParent = &parent
	}
	return nil
}

// OCO binds a and b as one-cancels-other: a.Cancel(b); b.Cancel(a).
func OCO(a, b *Order) error {
	if a == nil || b == nil {
		return fmt.Errorf("OCO: both orders are required: %w", types.ErrInvalidOrder)
	}
	if err := a.Cancel(b); err != nil {
		return err
	}
	if err := b.Cancel(a); err != nil {
		return err
	}
	return nil
}

// Validate enforces that order's level is consistent with the current
// market quote mark:
//
//	BUY  LIMIT: level <= mark
//	BUY  STOP:  level >= mark
//	SELL LIMIT: level >= mark
//	SELL STOP:  level <= mark
//
// MARKET orders bypass the mark comparison but still require a
// non-nil level (the level a MARKET order fills at is fixed at
// submission time, not discovered from the bar).
func Validate(o *Order, mark decimal.Decimal) error {
	if !o.Type.Valid() {
		return fmt.Errorf("order %d: invalid order type %q: %w", o.ID, o.Type, types.ErrInvalidOrder)
	}
	if o.level == nil {
		return fmt.Errorf("order %d: no level set: %w", o.ID, types.ErrInvalidOrder)
	}
	if o.Type == types.Market {
		return nil
	}
	lvl := *o.level
	switch {
	case o.Direction == types.Buy && o.Type == types.Limit && lvl.GreaterThan(mark):
		return fmt.Errorf("order %d: buy limit level %s above mark %s: %w", o.ID, lvl, mark, types.ErrInvalidOrder)
	case o.Direction == types.Buy && o.Type == types.Stop && lvl.LessThan(mark):
		return fmt.Errorf("order %d: buy stop level %s below mark %s: %w", o.ID, lvl, mark, types.ErrInvalidOrder)
	case o.Direction == types.Sell && o.Type == types.Limit && lvl.LessThan(mark):
		return fmt.Errorf("order %d: sell limit level %s below mark %s: %w", o.ID, lvl, mark, types.ErrInvalidOrder)
	case o.Direction == types.Sell && o.Type == types.Stop && lvl.GreaterThan(mark):
		return fmt.Errorf("order %d: sell stop level %s above mark %s: %w", o.ID, lvl, mark, types.ErrInvalidOrder)
	}
	return nil
}

func (o *Order) String() string {
	lvl := "nil"
	if o.level != nil {
		lvl = o.level.String()
	}
	return fmt.Sprintf("Order{id=%d sym=%s dir=%s type=%s level=%s size=%s state=%s}",
		o.ID, o.Symbol, o.Direction, o.Type, lvl, o.size, o.state)
}
