package report

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"backtest-engine/internal/backtest"
	"backtest-engine/internal/config"
)

// progressEvent is the wire shape broadcast to dashboard clients,
// derived from backtest.ProgressEvent.
type progressEvent struct {
	Type            string      `json:"type"`
	Timestamp       time.Time   `json:"timestamp"`
	Equity          json.Number `json:"equity"`
	OpenPositions   int         `json:"open_positions"`
	ClosedPositions int         `json:"closed_positions"`
}

func toProgressEvent(evt backtest.ProgressEvent) progressEvent {
	return progressEvent{
		Type:            "progress",
		Timestamp:       evt.Timestamp,
		Equity:          json.Number(evt.Equity.String()),
		OpenPositions:   evt.OpenPositions,
		ClosedPositions: evt.ClosedPositions,
	}
}

// Handlers holds the HTTP handler dependencies for the dashboard.
type Handlers struct {
	cfg    config.DashboardConfig
	hub    *Hub
	logger *slog.Logger

	mu   sync.RWMutex
	last *progressEvent
}

// NewHandlers builds dashboard handlers bound to hub.
func NewHandlers(cfg config.DashboardConfig, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{cfg: cfg, hub: hub, logger: logger.With("component", "dashboard-handlers")}
}

// Record updates the last-known snapshot served by HandleSnapshot and
// broadcasts it to connected clients.
func (h *Handlers) Record(evt backtest.ProgressEvent) {
	pe := toProgressEvent(evt)
	h.mu.Lock()
	h.last = &pe
	h.mu.Unlock()
	h.hub.BroadcastProgress(pe)
}

// HandleHealth is a liveness probe for the dashboard server.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSnapshot returns the most recent progress event as JSON.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	last := h.last
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if last == nil {
		json.NewEncoder(w).Encode(map[string]string{"status": "no data yet"})
		return
	}
	if err := json.NewEncoder(w).Encode(last); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// HandleWebSocket upgrades the connection and registers a new client,
// sending it the latest snapshot immediately.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.cfg, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	send := connect(h.hub, conn)

	h.mu.RLock()
	last := h.last
	h.mu.RUnlock()
	if last == nil {
		return
	}
	data, err := json.Marshal(last)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}
	select {
	case send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}

func isOriginAllowed(origin string, cfg config.DashboardConfig, reqHost string) bool {
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	normalized := normalizeOrigin(originURL.Scheme, originURL.Host)
	if normalized == "" {
		return false
	}

	if len(cfg.AllowedOrigins) > 0 {
		for _, allowed := range cfg.AllowedOrigins {
			u, err := url.Parse(allowed)
			if err != nil {
				continue
			}
			if normalized == normalizeOrigin(u.Scheme, u.Host) {
				return true
			}
		}
		return false
	}

	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	reqHostname := normalizeHost(reqHost)
	return reqHostname != "" && host == reqHostname
}

func normalizeOrigin(scheme, host string) string {
	if scheme == "" || host == "" {
		return ""
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
