package types

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNewBarValid(t *testing.T) {
	ts := time.Date(2001, 1, 2, 23, 0, 0, 0, time.UTC)
	b, err := NewBar("EURUSD", ts, d("0.9507"), d("0.9509"), d("0.9505"), d("0.9506"))
	if err != nil {
		t.Fatalf("NewBar() error = %v, want nil", err)
	}
	if !b.Low.Equal(d("0.9505")) || !b.High.Equal(d("0.9509")) {
		t.Errorf("bar fields not preserved: %+v", b)
	}
}

func TestNewBarInvalid(t *testing.T) {
	ts := time.Now()
	_, err := NewBar("EURUSD", ts, d("0.95"), d("0.94"), d("0.90"), d("0.93"))
	if err == nil {
		t.Fatal("NewBar() error = nil, want error for high < open")
	}
	if !errors.Is(err, ErrInvalidBar) {
		t.Errorf("NewBar() error = %v, want wrapping ErrInvalidBar", err)
	}
}

func TestBarMerge(t *testing.T) {
	ts := time.Now()
	b, _ := NewBar("EURUSD", ts, d("1.00"), d("1.02"), d("0.99"), d("1.01"))
	b.Merge(Bar{High: d("1.05"), Low: d("0.98"), Close: d("1.03")})
	if !b.High.Equal(d("1.05")) {
		t.Errorf("High = %s, want 1.05", b.High)
	}
	if !b.Low.Equal(d("0.98")) {
		t.Errorf("Low = %s, want 0.98", b.Low)
	}
	if !b.Close.Equal(d("1.03")) {
		t.Errorf("Close = %s, want 1.03", b.Close)
	}
	if !b.Open.Equal(d("1.00")) {
		t.Errorf("Open = %s, want unchanged 1.00", b.Open)
	}
}

func TestBarMergeValuesCloseOnly(t *testing.T) {
	ts := time.Now()
	b, _ := NewBar("EURUSD", ts, d("1.00"), d("1.02"), d("0.99"), d("1.01"))
	b.MergeValues(d("1.015"), nil, nil)
	if !b.Close.Equal(d("1.015")) {
		t.Errorf("Close = %s, want 1.015", b.Close)
	}
	if !b.High.Equal(d("1.02")) || !b.Low.Equal(d("0.99")) {
		t.Errorf("high/low should be unchanged when nil: %+v", b)
	}
}

func TestWeekday(t *testing.T) {
	sat := time.Date(2001, 1, 6, 0, 0, 0, 0, time.UTC) // a Saturday
	b := Bar{Timestamp: sat}
	if b.Weekday() != time.Saturday {
		t.Errorf("Weekday() = %v, want Saturday", b.Weekday())
	}
}
