// Package orderbook holds active/pending orders and evaluates, bar by
// bar, which of them fill — propagating trigger and cancel cascades as
// fills and cancels happen. It is deliberately free of any mutex: the
// kernel is single-threaded by design (see SPEC_FULL.md §5), unlike
// the concurrent, RWMutex-guarded book this package is modeled on.
package orderbook

import (
	"fmt"

	"backtest-engine/internal/order"
	"backtest-engine/pkg/types"
)

// OrderBook partitions every order it has accepted into live (ACTIVE
// or PENDING) and done (FILLED or CANCELLED); an order is in exactly
// one partition at any time.
type OrderBook struct {
	live  map[int64]*order.Order
	done  map[int64]*order.Order
	order []int64 // insertion order, for deterministic iteration
}

// New returns an empty OrderBook.
func New() *OrderBook {
	return &OrderBook{
		live: make(map[int64]*order.Order),
		done: make(map[int64]*order.Order),
	}
}

// Add admits one or more orders. Each is rejected with InvalidOrder if
// its id is already known (live or done); otherwise its state is set
// to PENDING if it has a trigger parent, else ACTIVE, and it is
// inserted into live.
func (b *OrderBook) Add(orders ...*order.Order) error {
	for _, o := range orders {
		if o == nil {
			return fmt.Errorf("orderbook: add passed a nil order: %w", types.ErrInvalidOrder)
		}
		if _, exists := b.live[o.ID]; exists {
			return fmt.Errorf("orderbook: duplicate order id %d: %w", o.ID, types.ErrInvalidOrder)
		}
		if _, exists := b.done[o.ID]; exists {
			return fmt.Errorf("orderbook: duplicate order id %d: %w", o.ID, types.ErrInvalidOrder)
		}
		st := types.Active
		if o.Triggered() {
			st = types.Pending
		}
		if err := o.SetState(st); err != nil {
			return err
		}
		b.live[o.ID] = o
		b.order = append(b.order, o.ID)
	}
	return nil
}

func (b *OrderBook) idsInState(m map[int64]*order.Order, s types.OrderState) []int64 {
	ids := make([]int64, 0, len(m))
	for _, id := range b.order {
		o, ok := m[id]
		if !ok || o.State() != s {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Active returns the ids of orders in state ACTIVE, in insertion order.
func (b *OrderBook) Active() []int64 { return b.idsInState(b.live, types.Active) }

// Pending returns the ids of orders in state PENDING, in insertion order.
func (b *OrderBook) Pending() []int64 { return b.idsInState(b.live, types.Pending) }

// Filled returns the ids of orders in state FILLED, in insertion order.
func (b *OrderBook) Filled() []int64 { return b.idsInState(b.done, types.Filled) }

// Cancelled returns the ids of orders in state CANCELLED, in insertion order.
func (b *OrderBook) Cancelled() []int64 { return b.idsInState(b.done, types.Cancelled) }

// Get returns the order with the given id and whether it is known to
// the book (live or done).
func (b *OrderBook) Get(id int64) (*order.Order, bool) {
	if o, ok := b.live[id]; ok {
		return o, true
	}
	o, ok := b.done[id]
	return o, ok
}

// Cancel moves the order with the given id from live to done with
// state CANCELLED, then recursively cancels every id in its triggers
// (a cancelled parent's would-be children never get to run). Returns
// false, without error, if id is unknown or already done — this is
// the idempotent, benign-race path from SPEC_FULL.md §7.
func (b *OrderBook) Cancel(id int64) bool {
	o, ok := b.live[id]
	if !ok {
		return false
	}
	delete(b.live, id)
	_ = o.SetState(types.Cancelled) // Cancelled is always a valid state
	b.done[id] = o
	for _, childID := range o.Triggers() {
		b.Cancel(childID)
	}
	return true
}

// CancelAll cancels every order currently live. The live id set is
// snapshotted first since cancellation cascades mutate the book.
func (b *OrderBook) CancelAll() {
	ids := make([]int64, 0, len(b.live))
	for id := range b.live {
		ids = append(ids, id)
	}
	for _, id := range ids {
		b.Cancel(id)
	}
}

// Fill moves o from live to done with state FILLED, activates every
// order in its triggers (they were PENDING), and cancels every order
// in its cancels. Returns false if o is unknown to the book.
func (b *OrderBook) Fill(o *order.Order) bool {
	if o == nil {
		return false
	}
	live, ok := b.live[o.ID]
	if !ok {
		return false
	}
	delete(b.live, o.ID)
	_ = live.SetState(types.Filled)
	b.done[o.ID] = live
	for _, tid := range live.Triggers() {
		if t, ok := b.live[tid]; ok {
			_ = t.SetState(types.Active)
		}
	}
	for _, cid := range live.Cancels() {
		b.Cancel(cid)
	}
	return true
}

// GetFills returns every ACTIVE order for bar's symbol whose condition
// the bar satisfies: MARKET orders always fill; LIMIT/STOP orders fill
// iff bar.Low <= level <= bar.High. The result is in insertion order.
func (b *OrderBook) GetFills(bar types.Bar) []*order.Order {
	var fills []*order.Order
	for _, id := range b.order {
		o, ok := b.live[id]
		if !ok || o.State() != types.Active || o.Symbol != bar.Symbol {
			continue
		}
		if o.Type == types.Market {
			fills = append(fills, o)
			continue
		}
		lvl := o.Level()
		if lvl == nil {
			continue
		}
		if lvl.GreaterThanOrEqual(bar.Low) && lvl.LessThanOrEqual(bar.High) {
			fills = append(fills, o)
		}
	}
	return fills
}
