// Package position implements Position and PositionList: the
// translation of order fills into open/closed exposures, including
// the rewind case when contingent exits collide within a single bar.
package position

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one open or closed exposure. It is created only by
// PositionList.Add from a non-triggered, non-linked filled order.
// Exit is set exactly once, at which point Mark is forced equal to it.
type Position struct {
	Symbol    string
	EntryTime time.Time
	Entry     decimal.Decimal
	Size      decimal.Decimal // signed; sign matches the opening order's direction
	Mark      decimal.Decimal
	Exit      *decimal.Decimal
	NBars     int
	OrderID   int64 // id of the opening order
}

// Value is the position's current mark-to-market P&L.
func (p *Position) Value() decimal.Decimal {
	return p.Mark.Sub(p.Entry).Mul(p.Size)
}

// Closed reports whether the position has an exit price.
func (p *Position) Closed() bool {
	return p.Exit != nil
}
