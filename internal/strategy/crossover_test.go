package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backtest-engine/internal/backtest"
	"backtest-engine/pkg/types"
)

func mkBar(t *testing.T, day int, close string) types.Bar {
	t.Helper()
	ts := time.Date(2001, 1, day, 0, 0, 0, 0, time.UTC)
	c := decimal.RequireFromString(close)
	b, err := types.NewBar("TEST", ts, c, c, c, c)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestCrossoverEntersAboveMA(t *testing.T) {
	c := NewCrossover(3, nil)
	bt := backtest.New(decimal.NewFromInt(100000), c, nil)

	// feed three flat bars at 10 to seed the moving average, then a
	// fourth above it to trigger an entry. The entry order is submitted
	// in the fourth bar's BarClose, so it fills on the fifth bar.
	for _, bar := range []types.Bar{mkBar(t, 1, "10"), mkBar(t, 2, "10"), mkBar(t, 3, "10")} {
		if err := bt.NextBar("TEST", bar); err != nil {
			t.Fatal(err)
		}
	}
	if len(bt.Book().Active())+len(bt.Book().Pending()) != 0 {
		t.Fatalf("book should be empty before MA warms up, got active=%v", bt.Book().Active())
	}

	if err := bt.NextBar("TEST", mkBar(t, 4, "12")); err != nil {
		t.Fatal(err)
	}
	if err := bt.NextBar("TEST", mkBar(t, 5, "12")); err != nil {
		t.Fatal(err)
	}
	if len(bt.PosList().Open) != 1 {
		t.Fatalf("Open = %d, want 1 after cross above", len(bt.PosList().Open))
	}
	pos := bt.PosList().Open[0]
	if pos.Size.LessThanOrEqual(decimal.Zero) {
		t.Errorf("Size = %s, want positive", pos.Size)
	}
	if !pos.Size.Mod(decimal.NewFromInt(lotSize)).Equal(decimal.Zero) {
		t.Errorf("Size = %s, want multiple of %d", pos.Size, lotSize)
	}
}

func TestCrossoverExitsBelowMA(t *testing.T) {
	c := NewCrossover(3, nil)
	bt := backtest.New(decimal.NewFromInt(100000), c, nil)

	// Orders submitted in a bar's BarClose fill on the next bar: the
	// entry placed on day 4 fills on day 5, and the exit placed on day 8
	// (the 6th and 7th are a weekend) fills on day 9.
	for _, bar := range []types.Bar{mkBar(t, 1, "10"), mkBar(t, 2, "10"), mkBar(t, 3, "10"), mkBar(t, 4, "12"), mkBar(t, 5, "12")} {
		if err := bt.NextBar("TEST", bar); err != nil {
			t.Fatal(err)
		}
	}
	if len(bt.PosList().Open) != 1 {
		t.Fatalf("Open = %d, want 1 before exit", len(bt.PosList().Open))
	}

	for _, bar := range []types.Bar{mkBar(t, 8, "8"), mkBar(t, 9, "8")} {
		if err := bt.NextBar("TEST", bar); err != nil {
			t.Fatal(err)
		}
	}
	if len(bt.PosList().Open) != 0 {
		t.Fatalf("Open = %d, want 0 after cross below", len(bt.PosList().Open))
	}
	if len(bt.PosList().Closed) != 1 {
		t.Fatalf("Closed = %d, want 1 after cross below", len(bt.PosList().Closed))
	}
}

func TestCrossoverSkipsReentryWhileOpen(t *testing.T) {
	c := NewCrossover(3, nil)
	bt := backtest.New(decimal.NewFromInt(100000), c, nil)

	for _, bar := range []types.Bar{mkBar(t, 1, "10"), mkBar(t, 2, "10"), mkBar(t, 3, "10"), mkBar(t, 4, "12"), mkBar(t, 5, "13")} {
		if err := bt.NextBar("TEST", bar); err != nil {
			t.Fatal(err)
		}
	}
	if len(bt.PosList().Open) != 1 {
		t.Fatalf("Open = %d, want 1 (no pyramiding)", len(bt.PosList().Open))
	}
}
