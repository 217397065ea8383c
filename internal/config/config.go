// Package config loads service configuration from the environment.
//
// Configuration is declared as envconfig-tagged structs and resolved with
// kelseyhightower/envconfig. In local development (APP_ENV=local) a .env
// file in the working directory is loaded first via godotenv, so secrets
// never need to be exported by hand.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the root configuration for all CropGuard binaries.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Weather  WeatherConfig
	Poller   PollerConfig
	AWS      AWSConfig
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"20s"`
}

// DatabaseConfig configures the pgx connection pool.
type DatabaseConfig struct {
	URL      string `envconfig:"DATABASE_URL" required:"true"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
}

// WeatherConfig configures the Open-Meteo upstream client.
type WeatherConfig struct {
	BaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://api.open-meteo.com"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
}

// PollerConfig configures the advisory evaluation cycle. The poller runs
// one combined cycle; sensor, pest, weather, and market inputs all ride the
// same cadence.
type PollerConfig struct {
	Interval          time.Duration `envconfig:"POLL_INTERVAL" default:"5m"`
	MarketSampleLimit int           `envconfig:"MARKET_SAMPLE_LIMIT" default:"50"`
}

// AWSConfig configures the SQS notification queue and CloudWatch metrics.
// Leave NotifyQueueURL empty to disable dispatch (local development).
type AWSConfig struct {
	Region           string `envconfig:"AWS_REGION" default:"us-east-1"`
	NotifyQueueURL   string `envconfig:"NOTIFY_QUEUE_URL" default:""`
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"CropGuard"`
	MetricsEnabled   bool   `envconfig:"METRICS_ENABLED" default:"false"`
}

// Load resolves the full configuration from the environment. In local mode
// a .env file is loaded first when present; a missing .env is not an error.
func Load() (*Config, error) {
	if env := os.Getenv("APP_ENV"); env == "" || env == "local" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment config: %w", err)
	}
	return &cfg, nil
}
