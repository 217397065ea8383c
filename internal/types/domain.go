package types

import "time"

// Farm is a monitored farm. Latitude/longitude feed the weather upstream;
// everything else in the platform is keyed by the farm ID.
type Farm struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Lat       float64   `json:"lat" db:"lat"`
	Lon       float64   `json:"lon" db:"lon"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SensorSnapshot is the most recent sensor reading for one farm. Nil fields
// mean "no sensor configured / no reading yet" — a normal condition, not an
// error. The engine treats a missing value as "rule does not fire".
type SensorSnapshot struct {
	Temperature    *float64  `json:"temperature" db:"temperature"`
	Humidity       *float64  `json:"humidity" db:"humidity"`
	SoilMoisture   *float64  `json:"soil_moisture" db:"soil_moisture"`
	LightIntensity *float64  `json:"light_intensity" db:"light_intensity"`
	RecordedAt     time.Time `json:"recorded_at" db:"recorded_at"`
}

// CurrentWeather holds the current conditions from the forecast provider.
type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WeatherCode int     `json:"weather_code"`
}

// DailyForecast holds index-aligned forecast arrays. Index 0 is today,
// index 1 tomorrow, and so on. All slices share the same length.
type DailyForecast struct {
	Dates        []string  `json:"dates"`
	WeatherCodes []int     `json:"weather_codes"`
	TempMax      []float64 `json:"temp_max"`
	TempMin      []float64 `json:"temp_min"`
}

// WeatherSnapshot is one fetch of current + daily forecast data for a farm
// location. A nil snapshot disables every weather-dependent rule.
type WeatherSnapshot struct {
	Current CurrentWeather `json:"current"`
	Daily   DailyForecast  `json:"daily"`
}

// PestReport is the most recent AI detection result for a farm. AnalyzedAt
// doubles as the recency comparator for dismissals and as the idempotency
// key for the notification side channel.
type PestReport struct {
	InfestationLevel *InfestationLevel `json:"infestation_level" db:"infestation_level"`
	ConfidenceScore  *float64          `json:"confidence_score" db:"confidence_score"`
	AnalyzedAt       time.Time         `json:"analyzed_at" db:"analyzed_at"`
}

// MarketSample is one community or simulated price submission.
type MarketSample struct {
	CropName   string    `json:"crop_name" db:"crop_name"`
	PricePerKg float64   `json:"price_per_kg" db:"price_per_kg"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Recommendation is one advisory produced by the rule engine. ID is the
// stable rule identifier, not a generated UUID: it is the correlation key
// for dismissals across evaluations. Recommendations are recreated fresh on
// every evaluation and never persisted by the engine.
type Recommendation struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	Urgency  Urgency `json:"urgency"`
	Category string  `json:"category"`
}

// Alert is a persisted threshold breach. At most one alert per
// (farm_id, alert_type, category) is created within the dedup window.
type Alert struct {
	ID        string        `json:"id" db:"id"`
	FarmID    string        `json:"farm_id" db:"farm_id"`
	AlertType string        `json:"alert_type" db:"alert_type"`
	Severity  AlertSeverity `json:"severity" db:"severity"`
	Message   string        `json:"message" db:"message"`
	Category  AlertCategory `json:"type" db:"category"`
	Priority  int           `json:"priority" db:"priority"`
	IsRead    bool          `json:"is_read" db:"is_read"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// AdvisorStatus is the aggregated notification state consumed by the UI
// badge. AgronomistContacted is advisory context only and does not gate
// HasUrgent.
type AdvisorStatus struct {
	HasUrgent           bool `json:"has_urgent"`
	UrgentCount         int  `json:"urgent_count"`
	AgronomistContacted bool `json:"agronomist_contacted"`
}

// WeatherInfo is the classifier output for a WMO weather code.
type WeatherInfo struct {
	Category    WeatherCategory `json:"category"`
	Description string          `json:"description"`
}
