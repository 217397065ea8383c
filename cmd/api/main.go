// Package main is the entry point for the CropGuard API server.
//
// It loads configuration, connects the database pool, wires the repositories
// and the advisory engine into the HTTP handlers, and serves requests with
// graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cropguard/internal/advisor"
	"cropguard/internal/alerting"
	"cropguard/internal/api/handlers"
	"cropguard/internal/config"
	"cropguard/internal/core"
	"cropguard/internal/db"
	"cropguard/internal/types"
	"cropguard/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("cropguard API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	// Repositories.
	farms := db.NewFarmRepository(pool)
	readings := db.NewReadingRepository(pool)
	pests := db.NewPestReportRepository(pool)
	market := db.NewMarketRepository(pool)
	alerts := db.NewAlertRepository(pool)
	state := db.NewAdvisorStateRepository(pool)
	contacts := db.NewContactLogRepository(pool)

	clock := types.RealClock{}

	// Upstream forecast client.
	weatherHTTP := &http.Client{Timeout: cfg.Weather.Timeout}
	weatherBase := upstream.NewBaseClient(weatherHTTP, "open-meteo", upstream.DefaultRetryPolicy())
	weather := upstream.NewOpenMeteoClient(weatherBase, cfg.Weather.BaseURL)

	// Advisory engine wiring.
	advisorSvc := advisor.NewService(readings, pests, market, weather, cfg.Poller.MarketSampleLimit, logger)
	aggregator := advisor.NewAggregator(state, contacts, logger)
	sensorEval := alerting.NewSensorEvaluator(alerts, clock, logger)

	// HTTP chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = []core.HealthProbe{dbProbe{pool: pool}}

	advisorHandler := handlers.NewAdvisorHandler(farms, advisorSvc, aggregator, clock, srv.Validator, logger)
	alertHandler := handlers.NewAlertHandler(farms, alerts, logger)
	readingHandler := handlers.NewReadingHandler(farms, readings, sensorEval, clock, srv.Validator, logger)
	marketHandler := handlers.NewMarketHandler(market, clock, srv.Validator, logger)
	pestHandler := handlers.NewPestHandler(farms, pests, clock, srv.Validator, logger)
	farmHandler := handlers.NewFarmHandler(farms, contacts, clock, srv.Validator, logger)

	srv.V1RouteRegistrars = []core.RouteRegistrar{
		farmHandler.RegisterRoutes,
		advisorHandler.RegisterRoutes,
		alertHandler.RegisterRoutes,
		readingHandler.RegisterRoutes,
		marketHandler.RegisterRoutes,
		pestHandler.RegisterRoutes,
	}

	srv.MountRoutes()

	return runHTTPServer(ctx, srv, cfg, logger)
}

// runHTTPServer starts the server and blocks until shutdown completes.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + strconv.Itoa(cfg.Server.Port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err.Error())
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// dbProbe reports database health for GET /health.
type dbProbe struct {
	pool *pgxpool.Pool
}

func (p dbProbe) Name() string                    { return "database" }
func (p dbProbe) Check(ctx context.Context) error { return p.pool.Ping(ctx) }

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
