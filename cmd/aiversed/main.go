// AIVERSE daemon — a simulated economy where AI agents trade services
// and shares on a continuous double-auction stock market.
//
// Architecture:
//
//	main.go              — entry point: loads config, starts the runtime, waits for SIGINT/SIGTERM
//	sim/runtime.go       — orchestrator: tick loop, event fanout, bots, invariant monitor, snapshots
//	world/world.go       — the economy: agents, companies, the daily cycle, the event log
//	exchange/exchange.go — price-time priority matching engine with escrowed balances
//	book/book.go         — B-tree order book, one per listed ticker
//	bots/bots.go         — autonomous traders that join, consume services and trade
//	api/server.go        — HTTP + WebSocket front: world views, actions, live event feed
//	journal/journal.go   — sqlite append log of trades and events
//	store/store.go       — JSON snapshot files for operators
//	metrics/metrics.go   — Prometheus collectors behind /metrics
//
// Money enters the world only through the daily income grant and leaves
// only through company sinks, so conservation is checkable at any time;
// the runtime does exactly that and halts on violation.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"aiverse/internal/api"
	"aiverse/internal/config"
	"aiverse/internal/sim"
	"aiverse/internal/world"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("AIVERSE_CONFIG"); p != "" {
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

	// Set up logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	w := world.New(world.Config{
		TicksPerDay:  cfg.World.TicksPerDay,
		DailyIncome:  decimal.NewFromFloat(cfg.World.DailyIncome),
		DividendRate: decimal.NewFromFloat(cfg.World.DividendRate),
		CreationCost: decimal.NewFromFloat(cfg.World.CreationCost),
		TotalShares:  decimal.NewFromFloat(cfg.World.TotalShares),
	}, logger)

	// The runtime wires the event sink, so it comes before Bootstrap:
	// seed events must reach the journal like any others.
	runtime, err := sim.New(*cfg, w, logger)
	if err != nil {
		logger.Error("failed to create runtime", "error", err)
		os.Exit(1)
	}

	if err := w.Bootstrap(); err != nil {
		logger.Error("failed to seed world", "error", err)
		os.Exit(1)
	}

	apiServer := api.NewServer(*cfg, w, logger)
	runtime.SetBroadcast(apiServer.Broadcast)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("api server failed", "error", err)
		}
	}()

	runtime.Start()

	logger.Info("aiverse started",
		"addr", cfg.Server.Addr(),
		"tick_interval", cfg.World.TickInterval,
		"bots", cfg.Bots.Enabled,
		"journal", cfg.Journal.Path,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	// Stop the front door first so no new actions race the shutdown
	if err := apiServer.Stop(); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}

	runtime.Stop()
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
