// Package main is the entry point for the CropGuard maintenance job: a
// run-to-completion process that archives old read alerts into compressed
// batches and prunes stale advisor state. Intended to run on a daily
// schedule (cron, ECS scheduled task).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cropguard/internal/config"
	"cropguard/internal/db"
	"cropguard/internal/scheduler"
	"cropguard/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("cropguard maintenance starting", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	alerts := db.NewAlertRepository(pool)
	state := db.NewAdvisorStateRepository(pool)

	m := scheduler.NewMaintenance(alerts, state, types.RealClock{}, logger)
	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("maintenance pass: %w", err)
	}

	logger.Info("maintenance complete")
	return nil
}

// newLogger creates a structured JSON logger for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
