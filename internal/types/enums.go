package types

// InfestationLevel is the ordinal pest-severity classification produced by
// the external image-analysis service. It is consumed here as an opaque
// enum; the engine only ever compares against specific values.
type InfestationLevel string

const (
	InfestationNone     InfestationLevel = "none"
	InfestationLow      InfestationLevel = "low"
	InfestationModerate InfestationLevel = "moderate"
	InfestationMedium   InfestationLevel = "medium"
	InfestationHigh     InfestationLevel = "high"
	InfestationCritical InfestationLevel = "critical"
)

// Urgency is the recommendation severity tier. It drives UI styling and
// notification behavior, and is independent of InfestationLevel.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyAdvice   Urgency = "advice"
	UrgencyNormal   Urgency = "normal"
)

// Rank returns a sortable weight for the urgency tier (higher is more
// urgent). Engine output is rule-declaration order, not severity order;
// callers needing severity order sort by this.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 3
	case UrgencyWarning:
		return 2
	case UrgencyAdvice:
		return 1
	default:
		return 0
	}
}

// AlertSeverity classifies persisted threshold alerts.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertCategory is the category tag on an alert record. Together with
// (farm_id, alert_type) it forms the deduplication key.
type AlertCategory string

const (
	CategoryMoisture   AlertCategory = "moisture"
	CategoryIrrigation AlertCategory = "irrigation"
	CategorySystem     AlertCategory = "system"
	CategoryWeather    AlertCategory = "weather"
)

// WeatherCategory groups WMO weather codes for rule evaluation and display.
type WeatherCategory string

const (
	WeatherClear   WeatherCategory = "clear"
	WeatherCloud   WeatherCategory = "cloud"
	WeatherFog     WeatherCategory = "fog"
	WeatherDrizzle WeatherCategory = "drizzle"
	WeatherRain    WeatherCategory = "rain"
	WeatherSnow    WeatherCategory = "snow"
	WeatherStorm   WeatherCategory = "storm"
)
