package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"cropguard/internal/advisor"
	"cropguard/internal/types"
)

// WeatherDedupWindow is the rolling window within which a second weather
// alert of the same (farm_id, alert_type) is suppressed.
const WeatherDedupWindow = 24 * time.Hour

// weatherAlertPriority is the fixed priority for weather-origin alerts.
const weatherAlertPriority = 2

// WeatherEvaluator materializes alerts for breached weather thresholds.
type WeatherEvaluator struct {
	sink   types.AlertSink
	clock  types.Clock
	logger *slog.Logger
}

// NewWeatherEvaluator creates a WeatherEvaluator writing to the given sink.
func NewWeatherEvaluator(sink types.AlertSink, clock types.Clock, logger *slog.Logger) *WeatherEvaluator {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherEvaluator{sink: sink, clock: clock, logger: logger}
}

// Evaluate checks the current conditions against the weather thresholds.
// The storm and heavy-rain checks are deliberately else-if: one evaluation
// produces at most one weather-code alert, storm taking precedence. All
// other checks are independent. Returns the number of alerts actually
// created.
func (e *WeatherEvaluator) Evaluate(ctx context.Context, farmID string, current types.CurrentWeather) int {
	created := 0

	if current.Temperature > 35 {
		created += e.create(ctx, farmID, "High Temperature Warning",
			fmt.Sprintf("Extreme heat detected: %.0f°C. Monitor crop stress levels and ensure adequate irrigation.", math.Round(current.Temperature)),
			types.SeverityCritical)
	}

	if current.Humidity > 80 {
		created += e.create(ctx, farmID, "High Humidity Alert",
			fmt.Sprintf("High humidity levels detected (%.0f%%). Increase ventilation to prevent fungal growth.", math.Round(current.Humidity)),
			types.SeverityHigh)
	}

	if advisor.IsStormCode(current.WeatherCode) {
		created += e.create(ctx, farmID, "Severe Weather Alert",
			"Thunderstorm warning. Secure equipment and ensure proper drainage systems are clear.",
			types.SeverityCritical)
	} else if advisor.IsHeavyRainCode(current.WeatherCode) {
		created += e.create(ctx, farmID, "Heavy Rainfall Alert",
			"Heavy rainfall forecast. Ensure drainage systems are clear and protect sensitive crops.",
			types.SeverityHigh)
	}

	if current.Temperature < 5 {
		created += e.create(ctx, farmID, "Frost Risk Warning",
			fmt.Sprintf("Low temperature detected: %.0f°C. Frost risk for sensitive crops. Consider protective measures.", math.Round(current.Temperature)),
			types.SeverityCritical)
	}

	return created
}

func (e *WeatherEvaluator) create(ctx context.Context, farmID, alertType, message string, severity types.AlertSeverity) int {
	now := e.clock.Now()
	alert := &types.Alert{
		ID:        uuid.New().String(),
		FarmID:    farmID,
		AlertType: alertType,
		Severity:  severity,
		Message:   message,
		Category:  types.CategoryWeather,
		Priority:  weatherAlertPriority,
		IsRead:    false,
		CreatedAt: now,
	}

	created, err := e.sink.InsertIfAbsent(ctx, alert, now.Add(-WeatherDedupWindow))
	if err != nil {
		e.logger.Error("weather alert insert failed",
			"farm_id", farmID,
			"alert_type", alertType,
			"error", err.Error(),
		)
		return 0
	}
	if !created {
		return 0
	}
	e.logger.Info("weather alert created",
		"farm_id", farmID,
		"alert_type", alertType,
		"severity", string(severity),
	)
	return 1
}
