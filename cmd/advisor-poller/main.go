// Package main is the entry point for the CropGuard advisory poller: the
// long-running process that re-evaluates every farm on a configurable
// cadence, materializes threshold alerts, and dispatches critical-pest
// notifications to the delivery queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"cropguard/internal/advisor"
	"cropguard/internal/alerting"
	"cropguard/internal/config"
	"cropguard/internal/db"
	"cropguard/internal/metrics"
	"cropguard/internal/queue"
	"cropguard/internal/scheduler"
	"cropguard/internal/types"
	"cropguard/internal/upstream"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
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
	logger.Info("cropguard advisor poller starting",
		"environment", cfg.Environment,
		"interval", cfg.Poller.Interval.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	farms := db.NewFarmRepository(pool)
	readings := db.NewReadingRepository(pool)
	pests := db.NewPestReportRepository(pool)
	market := db.NewMarketRepository(pool)
	alerts := db.NewAlertRepository(pool)
	state := db.NewAdvisorStateRepository(pool)

	clock := types.RealClock{}

	weatherHTTP := &http.Client{Timeout: cfg.Weather.Timeout}
	weatherBase := upstream.NewBaseClient(weatherHTTP, "open-meteo", upstream.DefaultRetryPolicy())
	weather := upstream.NewOpenMeteoClient(weatherBase, cfg.Weather.BaseURL)

	svc := advisor.NewService(readings, pests, market, weather, cfg.Poller.MarketSampleLimit, logger)
	sensorEval := alerting.NewSensorEvaluator(alerts, clock, logger)
	weatherEval := alerting.NewWeatherEvaluator(alerts, clock, logger)

	var dispatcher types.NotificationDispatcher
	var collector metrics.Collector = metrics.Noop{}

	if cfg.AWS.NotifyQueueURL != "" || cfg.AWS.MetricsEnabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		if cfg.AWS.NotifyQueueURL != "" {
			dispatcher = queue.NewDispatcher(sqs.NewFromConfig(awsCfg), cfg.AWS.NotifyQueueURL, clock, logger)
		}
		if cfg.AWS.MetricsEnabled {
			collector = metrics.NewCloudWatchCollector(cloudwatch.NewFromConfig(awsCfg), cfg.AWS.MetricsNamespace, logger)
		}
	}
	if dispatcher == nil {
		logger.Warn("notification queue not configured; critical pest dispatch disabled")
	}

	poller := scheduler.NewPoller(farms, svc, sensorEval, weatherEval, state, dispatcher, collector, clock, logger)
	return poller.Run(ctx, cfg.Poller.Interval)
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
