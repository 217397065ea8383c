// Package alerting implements the sensor and weather threshold evaluators.
// Each evaluator checks one snapshot against fixed breach thresholds and
// materializes deduplicated alert records through an AlertSink. A failed
// insert for one threshold is logged and swallowed so sibling checks still
// run; nothing here ever propagates a collaborator failure to the caller.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cropguard/internal/types"
)

// SensorDedupWindow is the rolling window within which a second sensor
// alert of the same (farm_id, alert_type, category) is suppressed.
const SensorDedupWindow = 6 * time.Hour

// sensorAlertPriority is the fixed priority for sensor-origin alerts.
const sensorAlertPriority = 3

// SensorEvaluator materializes alerts for breached sensor thresholds.
type SensorEvaluator struct {
	sink   types.AlertSink
	clock  types.Clock
	logger *slog.Logger
}

// NewSensorEvaluator creates a SensorEvaluator writing to the given sink.
func NewSensorEvaluator(sink types.AlertSink, clock types.Clock, logger *slog.Logger) *SensorEvaluator {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorEvaluator{sink: sink, clock: clock, logger: logger}
}

// Evaluate checks every configured sensor threshold against the snapshot
// and creates an alert for each breach not already alerted within the 6h
// dedup window. Nil sensor fields skip their checks. The low/high checks on
// the same metric are mutually exclusive; checks across metrics are not.
// Returns the number of alerts actually created.
func (e *SensorEvaluator) Evaluate(ctx context.Context, farmID string, s *types.SensorSnapshot) int {
	if s == nil {
		return 0
	}
	created := 0

	if s.SoilMoisture != nil {
		if *s.SoilMoisture < 30 {
			created += e.create(ctx, farmID, "Low Soil Moisture",
				fmt.Sprintf("Critical: Soil moisture at %.1f%%. Immediate irrigation recommended.", *s.SoilMoisture),
				types.SeverityCritical, types.CategoryMoisture)
		} else if *s.SoilMoisture > 80 {
			created += e.create(ctx, farmID, "High Soil Moisture",
				fmt.Sprintf("Warning: Soil moisture at %.1f%%. Risk of waterlogging. Check drainage.", *s.SoilMoisture),
				types.SeverityHigh, types.CategoryMoisture)
		}
	}

	if s.Temperature != nil {
		if *s.Temperature > 38 {
			created += e.create(ctx, farmID, "Extreme Heat Alert",
				fmt.Sprintf("Temperature at %.1f°C. Critical heat stress for crops. Increase irrigation.", *s.Temperature),
				types.SeverityCritical, types.CategoryIrrigation)
		} else if *s.Temperature < 10 {
			created += e.create(ctx, farmID, "Cold Temperature Alert",
				fmt.Sprintf("Temperature at %.1f°C. Cold stress risk. Monitor sensitive crops.", *s.Temperature),
				types.SeverityHigh, types.CategoryIrrigation)
		}
	}

	if s.Humidity != nil && *s.Humidity < 40 {
		created += e.create(ctx, farmID, "Low Humidity Alert",
			fmt.Sprintf("Humidity at %.1f%%. Risk of plant water stress. Consider misting or irrigation.", *s.Humidity),
			types.SeverityMedium, types.CategoryIrrigation)
	}

	if s.LightIntensity != nil && *s.LightIntensity < 3000 {
		created += e.create(ctx, farmID, "Low Light Intensity",
			fmt.Sprintf("Light intensity at %.0f lux. May affect photosynthesis and growth.", *s.LightIntensity),
			types.SeverityLow, types.CategorySystem)
	}

	return created
}

// create inserts one alert unless a matching one exists inside the dedup
// window, returning 1 when a row was inserted. Errors are logged and
// swallowed so later checks still run.
func (e *SensorEvaluator) create(ctx context.Context, farmID, alertType, message string, severity types.AlertSeverity, category types.AlertCategory) int {
	now := e.clock.Now()
	alert := &types.Alert{
		ID:        uuid.New().String(),
		FarmID:    farmID,
		AlertType: alertType,
		Severity:  severity,
		Message:   message,
		Category:  category,
		Priority:  sensorAlertPriority,
		IsRead:    false,
		CreatedAt: now,
	}

	created, err := e.sink.InsertIfAbsent(ctx, alert, now.Add(-SensorDedupWindow))
	if err != nil {
		e.logger.Error("sensor alert insert failed",
			"farm_id", farmID,
			"alert_type", alertType,
			"error", err.Error(),
		)
		return 0
	}
	if !created {
		return 0
	}
	e.logger.Info("sensor alert created",
		"farm_id", farmID,
		"alert_type", alertType,
		"severity", string(severity),
	)
	return 1
}
