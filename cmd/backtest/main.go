// Command backtest replays historical OHLC bar data through a
// pluggable strategy via the event-driven backtesting kernel.
//
// Architecture:
//
//	main.go                    — entry point: loads config, wires inputs, runs, reports
//	internal/config            — YAML config with BT_* env overrides
//	internal/money             — fixed-precision decimal facility
//	internal/order             — order state machine and cross-reference wiring
//	internal/orderbook         — live/done order book and fill detection
//	internal/position          — position open/close/rewind semantics
//	internal/backtest          — per-bar cycle driver, equity tracking, conflict resolution
//	internal/feed              — CSV/HTTP bar sources and parsers
//	internal/strategy          — Strategy implementations
//	internal/report            — equity-curve writer, summary, live dashboard
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/shopspring/decimal"

	"backtest-engine/internal/backtest"
	"backtest-engine/internal/config"
	"backtest-engine/internal/feed"
	"backtest-engine/internal/money"
	"backtest-engine/internal/report"
	"backtest-engine/internal/strategy"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("BT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	money.Init(cfg.Output.Precision)

	strat := strategy.NewCrossover(200, logger)
	bt := backtest.New(decimal.NewFromFloat(cfg.InitialEquity), strat, logger)

	if err := wireInputs(bt, cfg); err != nil {
		logger.Error("failed to wire inputs", "error", err)
		os.Exit(1)
	}

	var progressCh chan backtest.ProgressEvent
	var dashboard *report.Server
	if cfg.Dashboard.Enabled {
		progressCh = make(chan backtest.ProgressEvent, 64)
		bt.SetProgressSink(progressCh)
		dashboard = report.NewServer(cfg.Dashboard, progressCh, logger)
		go func() {
			if err := dashboard.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	if err := bt.Run(ctx); err != nil {
		logger.Error("backtest run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run complete", "open", len(bt.PosList().Open), "closed", len(bt.PosList().Closed), "rewinded", len(bt.PosList().Rewinded))
	bt.PosList().CloseAll(nil)

	summary := report.Summarize(bt)
	report.LogSummary(logger, summary)

	curvePath, err := report.UniqueName(cfg.Output.Dir, cfg.Output.EquityCurve)
	if err != nil {
		logger.Error("failed to pick equity curve path", "error", err)
	} else if err := report.WriteEquityCurve(curvePath, bt.EqVals()); err != nil {
		logger.Error("failed to write equity curve", "error", err)
	} else {
		logger.Info("equity curve written", "path", curvePath)
	}

	if dashboard != nil {
		if err := dashboard.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}
}

func wireInputs(bt *backtest.BackTest, cfg *config.Config) error {
	httpClient := feed.NewHTTPClient()

	for _, in := range cfg.Inputs {
		var parser feed.ParseFunc
		switch in.Format {
		case "intraday":
			parser = feed.IntradayParser
		case "daily":
			parser = feed.DailyParser
		default:
			return fmt.Errorf("main: input %s: unknown format %q", in.Symbol, in.Format)
		}

		var source feed.LineSource
		switch {
		case in.Path != "":
			fs, err := feed.OpenFile(filepath.Clean(in.Path))
			if err != nil {
				return err
			}
			source = fs
		case in.URL != "":
			hs, err := feed.OpenHTTP(httpClient, in.URL)
			if err != nil {
				return err
			}
			source = hs
		}

		bt.AddInput(in.Symbol, source, parser)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
