package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"backtest-engine/internal/backtest"
	"backtest-engine/internal/config"
)

// Server runs the dashboard's HTTP/WebSocket API, fed by a
// backtest.ProgressEvent channel registered via
// BackTest.SetProgressSink.
type Server struct {
	cfg      config.DashboardConfig
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	progress <-chan backtest.ProgressEvent
	logger   *slog.Logger
}

// NewServer builds a dashboard server that, once started, consumes
// events from progress until the channel is closed; Stop shuts down
// the HTTP server only and does not end that consumer.
func NewServer(cfg config.DashboardConfig, progress <-chan backtest.ProgressEvent, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handlers.HandleHealth)
	mux.HandleFunc("/api/summary", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		hub:      hub,
		handlers: handlers,
		server:   httpServer,
		progress: progress,
		logger:   logger.With("component", "dashboard-server"),
	}
}

// Start runs the hub and the progress consumer, then blocks serving
// HTTP until Stop is called.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeProgress()

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("report: server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) consumeProgress() {
	if s.progress == nil {
		return
	}
	for evt := range s.progress {
		s.handlers.Record(evt)
	}
}
