package report

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backtest-engine/internal/backtest"
	"backtest-engine/internal/config"
)

func TestIsOriginAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origin  string
		cfg     config.DashboardConfig
		reqHost string
		want    bool
	}{
		{
			name:    "empty origin is allowed",
			origin:  "",
			cfg:     config.DashboardConfig{},
			reqHost: "localhost:8080",
			want:    true,
		},
		{
			name:    "localhost origin allowed by default",
			origin:  "http://localhost:8080",
			cfg:     config.DashboardConfig{},
			reqHost: "localhost:8080",
			want:    true,
		},
		{
			name:    "non-local origin denied by default",
			origin:  "https://evil.example",
			cfg:     config.DashboardConfig{},
			reqHost: "localhost:8080",
			want:    false,
		},
		{
			name:    "allowlist permits exact origin",
			origin:  "https://dash.example.com",
			cfg:     config.DashboardConfig{AllowedOrigins: []string{"https://dash.example.com"}},
			reqHost: "0.0.0.0:8080",
			want:    true,
		},
		{
			name:    "allowlist denies everything else",
			origin:  "https://evil.example",
			cfg:     config.DashboardConfig{AllowedOrigins: []string{"https://dash.example.com"}},
			reqHost: "0.0.0.0:8080",
			want:    false,
		},
		{
			name:    "same host allowed when no allowlist",
			origin:  "https://backtest.internal:8080",
			cfg:     config.DashboardConfig{},
			reqHost: "backtest.internal:8080",
			want:    true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isOriginAllowed(tt.origin, tt.cfg, tt.reqHost); got != tt.want {
				t.Fatalf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestHandlersRecordUpdatesSnapshot(t *testing.T) {
	hub := NewHub(slog.Default())
	h := NewHandlers(config.DashboardConfig{}, hub, slog.Default())

	h.Record(backtest.ProgressEvent{
		Timestamp:       time.Date(2001, 1, 2, 23, 0, 0, 0, time.UTC),
		Equity:          decimal.NewFromInt(100005),
		OpenPositions:   1,
		ClosedPositions: 2,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/summary", nil)
	h.HandleSnapshot(rec, req)

	var got progressEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.OpenPositions != 1 || got.ClosedPositions != 2 {
		t.Errorf("got %+v, want open=1 closed=2", got)
	}
	if got.Equity.String() != "100005" {
		t.Errorf("Equity = %s, want 100005", got.Equity)
	}
}

func TestHandlersSnapshotBeforeAnyRecord(t *testing.T) {
	hub := NewHub(slog.Default())
	h := NewHandlers(config.DashboardConfig{}, hub, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/summary", nil)
	h.HandleSnapshot(rec, req)

	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got["status"] != "no data yet" {
		t.Errorf("got %v, want status=no data yet", got)
	}
}

func TestHandleHealth(t *testing.T) {
	hub := NewHub(slog.Default())
	h := NewHandlers(config.DashboardConfig{}, hub, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	h.HandleHealth(rec, req)

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
