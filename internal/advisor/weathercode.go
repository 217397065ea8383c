// Package advisor implements the farm advisory engine: the WMO weather-code
// classifier, the correlation rule engine that fuses sensor, weather, pest
// and market inputs into prioritized recommendations, and the status
// aggregator that derives the UI notification flag.
package advisor

import "cropguard/internal/types"

// weatherCodes maps WMO interpretation codes to display categories.
var weatherCodes = map[int]types.WeatherInfo{
	0:  {Category: types.WeatherClear, Description: "Clear Sky"},
	1:  {Category: types.WeatherClear, Description: "Mainly Clear"},
	2:  {Category: types.WeatherCloud, Description: "Partly Cloudy"},
	3:  {Category: types.WeatherCloud, Description: "Overcast"},
	45: {Category: types.WeatherFog, Description: "Foggy"},
	48: {Category: types.WeatherFog, Description: "Depositing Rime Fog"},
	51: {Category: types.WeatherDrizzle, Description: "Light Drizzle"},
	53: {Category: types.WeatherDrizzle, Description: "Moderate Drizzle"},
	55: {Category: types.WeatherDrizzle, Description: "Dense Drizzle"},
	61: {Category: types.WeatherRain, Description: "Slight Rain"},
	63: {Category: types.WeatherRain, Description: "Moderate Rain"},
	65: {Category: types.WeatherRain, Description: "Heavy Rain"},
	71: {Category: types.WeatherSnow, Description: "Slight Snow"},
	73: {Category: types.WeatherSnow, Description: "Moderate Snow"},
	75: {Category: types.WeatherSnow, Description: "Heavy Snow"},
	80: {Category: types.WeatherRain, Description: "Slight Rain Showers"},
	81: {Category: types.WeatherRain, Description: "Moderate Rain Showers"},
	82: {Category: types.WeatherRain, Description: "Violent Rain Showers"},
	95: {Category: types.WeatherStorm, Description: "Thunderstorm"},
	96: {Category: types.WeatherStorm, Description: "Thunderstorm with Slight Hail"},
	99: {Category: types.WeatherStorm, Description: "Thunderstorm with Heavy Hail"},
}

// Classify maps a WMO weather code to its category and description. Total
// over all integers: unknown codes return the cloud category with an
// "Unknown" description, never an error.
func Classify(code int) types.WeatherInfo {
	if info, ok := weatherCodes[code]; ok {
		return info
	}
	return types.WeatherInfo{Category: types.WeatherCloud, Description: "Unknown"}
}

// rainForecastCodes is the code set the recommendation engine treats as
// "rain in forecast".
//
// Note: this set and the heavy-rain alert range below were authored
// independently and do not coincide (66/67 alert but are not "rain in
// forecast"; drizzle and showers are "rain in forecast" but never alert).
// Both definitions are kept as calibrated; do not unify them.
var rainForecastCodes = map[int]struct{}{
	51: {}, 53: {}, 55: {}, 61: {}, 63: {}, 65: {}, 80: {}, 81: {}, 82: {},
}

// IsRainForecastCode reports whether the code counts as rain for the
// pest-weather timing rule.
func IsRainForecastCode(code int) bool {
	_, ok := rainForecastCodes[code]
	return ok
}

// IsHeavyRainCode reports whether the code falls in the heavy-rainfall
// alerting range [61, 67].
func IsHeavyRainCode(code int) bool {
	return code >= 61 && code <= 67
}

// IsStormCode reports whether the code indicates a thunderstorm (>= 95).
func IsStormCode(code int) bool {
	return code >= 95
}
