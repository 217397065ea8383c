package advisor

import (
	"fmt"
	"sort"
	"strings"

	"cropguard/internal/types"
)

// Rule IDs are stable identifiers: they survive across evaluations so that
// callers can correlate "this recommendation" between runs (dismissals,
// notification dedup).
const (
	RulePestWeatherRain         = "pest-weather-rain"
	RuleSensorWeatherIrrigation = "sensor-weather-irrigation"
	RuleLowSoilMoisture         = "low-soil-moisture"
	RuleMarketHealthOpportunity = "market-health-opportunity"
	RuleCriticalPest            = "critical-pest"
	RuleExtremeHeat             = "extreme-heat"
	RuleOptimalConditions       = "optimal-conditions"
	RuleNormalOperation         = "normal-operation"
)

// Inputs is the combined, independently-optional input set for one
// evaluation. A nil snapshot or empty market slice disables the rules that
// depend on it; it is never an error.
type Inputs struct {
	Sensor  *types.SensorSnapshot
	Weather *types.WeatherSnapshot
	Pest    *types.PestReport
	Market  []types.MarketSample
}

// rule is one entry in the declarative rule table: an independent predicate
// plus a builder for the recommendation it produces. Adding or removing a
// rule never touches the evaluation loop.
type rule struct {
	id       string
	title    string
	urgency  types.Urgency
	category string
	when     func(in Inputs) bool
	message  func(in Inputs) string
}

// rules is evaluated in declaration order; every matching rule fires and
// the engine never short-circuits. The thresholds below are exact domain
// calibration — preserve the comparison operators and constants.
var rules = []rule{
	{
		id:       RulePestWeatherRain,
		title:    "Delay Pesticide Application",
		urgency:  types.UrgencyWarning,
		category: "Pest & Weather",
		when: func(in Inputs) bool {
			return pestLevelIn(in.Pest, types.InfestationMedium, types.InfestationHigh) &&
				rainInForecast(in.Weather)
		},
		message: func(Inputs) string {
			return "DO NOT spray pesticides today. Upcoming rain will wash treatments away. " +
				"Wait for a clear dry window to maximize treatment effectiveness."
		},
	},
	{
		id:       RuleSensorWeatherIrrigation,
		title:    "CRITICAL: Immediate Irrigation Required",
		urgency:  types.UrgencyCritical,
		category: "Water Management",
		when: func(in Inputs) bool {
			moisture := soilMoisture(in.Sensor)
			tomorrow := tomorrowMaxTemp(in.Weather)
			return moisture != nil && *moisture < 30 && tomorrow != nil && *tomorrow > 35
		},
		message: func(in Inputs) string {
			return fmt.Sprintf(
				"Severe heat stress is likely tomorrow due to dry soil (%.1f%%) and high forecasted temperatures (%.1f°C). Irrigate immediately to prevent crop damage.",
				*soilMoisture(in.Sensor), *tomorrowMaxTemp(in.Weather))
		},
	},
	{
		id:       RuleLowSoilMoisture,
		title:    "Low Soil Moisture Detected",
		urgency:  types.UrgencyWarning,
		category: "Water Management",
		when: func(in Inputs) bool {
			moisture := soilMoisture(in.Sensor)
			return moisture != nil && *moisture < 25
		},
		message: func(in Inputs) string {
			return fmt.Sprintf(
				"Soil moisture is critically low at %.1f%%. Plan irrigation to prevent crop stress.",
				*soilMoisture(in.Sensor))
		},
	},
	{
		id:       RuleMarketHealthOpportunity,
		title:    "Profit Opportunity Detected",
		urgency:  types.UrgencyAdvice,
		category: "Market Opportunity",
		when: func(in Inputs) bool {
			return pestLevelIn(in.Pest, types.InfestationNone, types.InfestationLow) &&
				(marketTrendingUp(in.Market, "Maize") || marketTrendingUp(in.Market, "Corn"))
		},
		message: func(Inputs) string {
			return "Crop health is good and Maize prices are rising. Consider preparing for harvest soon to maximize profit. Market conditions are favorable."
		},
	},
	{
		id:       RuleCriticalPest,
		title:    "URGENT: Critical Pest Infestation",
		urgency:  types.UrgencyCritical,
		category: "Pest Management",
		when: func(in Inputs) bool {
			return pestLevelIn(in.Pest, types.InfestationCritical)
		},
		message: func(Inputs) string {
			// The anchor carries the dismissal key consumed by the status
			// aggregator when the user clicks through to an agronomist.
			return `Critical pest levels detected. Immediate intervention required. <a href="/expert-directory" data-dismiss-alert="critical-pest">Consult with an agronomist</a> for treatment recommendations.`
		},
	},
	{
		id:       RuleExtremeHeat,
		title:    "Extreme Heat Alert",
		urgency:  types.UrgencyWarning,
		category: "Climate Stress",
		when: func(in Inputs) bool {
			return in.Weather != nil && in.Weather.Current.Temperature > 38
		},
		message: func(in Inputs) string {
			return fmt.Sprintf(
				"Current temperature is %.1f°C. Monitor crops closely for heat stress. Ensure adequate irrigation.",
				in.Weather.Current.Temperature)
		},
	},
	{
		id:       RuleOptimalConditions,
		title:    "Optimal Growing Conditions",
		urgency:  types.UrgencyAdvice,
		category: "Status",
		when: func(in Inputs) bool {
			moisture := soilMoisture(in.Sensor)
			if moisture == nil || *moisture < 50 || *moisture > 70 {
				return false
			}
			if !pestLevelIn(in.Pest, types.InfestationNone) {
				return false
			}
			return in.Weather != nil &&
				in.Weather.Current.Temperature >= 20 && in.Weather.Current.Temperature <= 30
		},
		message: func(Inputs) string {
			return "All systems are operating within ideal ranges. Soil moisture is balanced, no pests detected, and temperature is optimal for crop growth."
		},
	},
}

// defaultRecommendation is appended iff no rule above fired, guaranteeing
// non-empty engine output.
var defaultRecommendation = types.Recommendation{
	ID:       RuleNormalOperation,
	Title:    "System Operating Normally",
	Message:  "Continue regular monitoring. All parameters are within acceptable ranges. No immediate actions required.",
	Urgency:  types.UrgencyNormal,
	Category: "Status",
}

func pestLevelIn(p *types.PestReport, levels ...types.InfestationLevel) bool {
	if p == nil || p.InfestationLevel == nil {
		return false
	}
	for _, l := range levels {
		if *p.InfestationLevel == l {
			return true
		}
	}
	return false
}

func soilMoisture(s *types.SensorSnapshot) *float64 {
	if s == nil {
		return nil
	}
	return s.SoilMoisture
}

// rainInForecast checks forecast-day-0 against the rain code set.
func rainInForecast(w *types.WeatherSnapshot) bool {
	if w == nil || len(w.Daily.WeatherCodes) == 0 {
		return false
	}
	return IsRainForecastCode(w.Daily.WeatherCodes[0])
}

// tomorrowMaxTemp returns daily.temp_max[1], falling back to temp_max[0]
// when the forecast only covers today. Nil when there is no forecast.
func tomorrowMaxTemp(w *types.WeatherSnapshot) *float64 {
	if w == nil || len(w.Daily.TempMax) == 0 {
		return nil
	}
	if len(w.Daily.TempMax) > 1 {
		return &w.Daily.TempMax[1]
	}
	return &w.Daily.TempMax[0]
}

// marketTrendingUp reports whether the crop's most recent price exceeds
// 1.10x the mean of the next up-to-4 most recent prices. Requires at least
// two samples for the crop; with fewer the trend is false, never an error.
func marketTrendingUp(samples []types.MarketSample, cropName string) bool {
	var crop []types.MarketSample
	for _, s := range samples {
		if strings.EqualFold(s.CropName, cropName) {
			crop = append(crop, s)
		}
	}
	if len(crop) < 2 {
		return false
	}

	sort.Slice(crop, func(i, j int) bool {
		return crop[i].CreatedAt.After(crop[j].CreatedAt)
	})

	latest := crop[0].PricePerKg
	window := crop[1:]
	if len(window) > 4 {
		window = window[:4]
	}
	var sum float64
	for _, s := range window {
		sum += s.PricePerKg
	}
	previousAvg := sum / float64(len(window))

	return latest > previousAvg*1.1
}
