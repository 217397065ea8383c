package advisor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard/internal/types"
)

func fptr(v float64) *float64 { return &v }

func pest(level types.InfestationLevel) *types.PestReport {
	return &types.PestReport{InfestationLevel: &level, AnalyzedAt: time.Now()}
}

func weatherWith(temp float64, dayCodes []int, tempMax []float64) *types.WeatherSnapshot {
	return &types.WeatherSnapshot{
		Current: types.CurrentWeather{Temperature: temp},
		Daily:   types.DailyForecast{WeatherCodes: dayCodes, TempMax: tempMax},
	}
}

func ids(recs []types.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestGenerate_AllInputsNil(t *testing.T) {
	recs := Generate(Inputs{})

	require.Len(t, recs, 1)
	assert.Equal(t, RuleNormalOperation, recs[0].ID)
	assert.Equal(t, types.UrgencyNormal, recs[0].Urgency)
	assert.NotEmpty(t, recs[0].Message)
}

func TestGenerate_NeverEmpty(t *testing.T) {
	// Inputs present but no thresholds breached.
	in := Inputs{
		Sensor:  &types.SensorSnapshot{SoilMoisture: fptr(45)},
		Weather: weatherWith(22, []int{0}, []float64{25, 26}),
	}
	recs := Generate(in)
	require.NotEmpty(t, recs)
	assert.Equal(t, []string{RuleNormalOperation}, ids(recs))
}

func TestGenerate_PestWeatherRain(t *testing.T) {
	in := Inputs{
		Pest:    pest(types.InfestationMedium),
		Weather: weatherWith(22, []int{61}, []float64{25, 26}),
	}
	recs := Generate(in)
	assert.Contains(t, ids(recs), RulePestWeatherRain)

	// High infestation also qualifies.
	in.Pest = pest(types.InfestationHigh)
	assert.Contains(t, ids(Generate(in)), RulePestWeatherRain)

	// Storm on day 0 is not "rain in forecast" for this rule.
	in.Weather = weatherWith(22, []int{95}, []float64{25, 26})
	assert.NotContains(t, ids(Generate(in)), RulePestWeatherRain)

	// Low infestation does not qualify.
	in.Pest = pest(types.InfestationLow)
	in.Weather = weatherWith(22, []int{61}, []float64{25, 26})
	assert.NotContains(t, ids(Generate(in)), RulePestWeatherRain)
}

func TestGenerate_IrrigationThresholdsAreStrict(t *testing.T) {
	// Exactly 30% moisture does not fire the irrigation rule.
	in := Inputs{
		Sensor:  &types.SensorSnapshot{SoilMoisture: fptr(30)},
		Weather: weatherWith(22, nil, []float64{30, 36}),
	}
	assert.NotContains(t, ids(Generate(in)), RuleSensorWeatherIrrigation)

	// Exactly 35°C tomorrow does not fire either.
	in.Sensor.SoilMoisture = fptr(29.9)
	in.Weather = weatherWith(22, nil, []float64{30, 35})
	assert.NotContains(t, ids(Generate(in)), RuleSensorWeatherIrrigation)

	// Just past both boundaries fires.
	in.Weather = weatherWith(22, nil, []float64{30, 35.1})
	recs := Generate(in)
	require.Contains(t, ids(recs), RuleSensorWeatherIrrigation)
	for _, r := range recs {
		if r.ID == RuleSensorWeatherIrrigation {
			assert.Equal(t, types.UrgencyCritical, r.Urgency)
			assert.Contains(t, r.Message, "29.9%")
			assert.Contains(t, r.Message, "35.1°C")
		}
	}
}

func TestGenerate_TomorrowFallsBackToToday(t *testing.T) {
	// Single-day forecast: index 0 substitutes for tomorrow.
	in := Inputs{
		Sensor:  &types.SensorSnapshot{SoilMoisture: fptr(20)},
		Weather: weatherWith(22, nil, []float64{36}),
	}
	assert.Contains(t, ids(Generate(in)), RuleSensorWeatherIrrigation)
}

func TestGenerate_IrrigationAndLowMoistureCoOccur(t *testing.T) {
	// Moisture below both thresholds with hot tomorrow fires both water
	// rules, in declaration order.
	in := Inputs{
		Sensor:  &types.SensorSnapshot{SoilMoisture: fptr(20)},
		Weather: weatherWith(22, nil, []float64{30, 37}),
	}
	recs := Generate(in)
	got := ids(recs)
	require.Contains(t, got, RuleSensorWeatherIrrigation)
	require.Contains(t, got, RuleLowSoilMoisture)

	var irrigationIdx, lowIdx int
	for i, id := range got {
		switch id {
		case RuleSensorWeatherIrrigation:
			irrigationIdx = i
		case RuleLowSoilMoisture:
			lowIdx = i
		}
	}
	assert.Less(t, irrigationIdx, lowIdx)
}

func TestGenerate_LowSoilMoistureBoundary(t *testing.T) {
	in := Inputs{Sensor: &types.SensorSnapshot{SoilMoisture: fptr(25)}}
	assert.NotContains(t, ids(Generate(in)), RuleLowSoilMoisture)

	in.Sensor.SoilMoisture = fptr(24.9)
	assert.Contains(t, ids(Generate(in)), RuleLowSoilMoisture)
}

func TestGenerate_MarketOpportunity(t *testing.T) {
	now := time.Now()
	samples := []types.MarketSample{
		{CropName: "Maize", PricePerKg: 12, CreatedAt: now},
		{CropName: "Maize", PricePerKg: 10, CreatedAt: now.Add(-1 * time.Hour)},
		{CropName: "Maize", PricePerKg: 10, CreatedAt: now.Add(-2 * time.Hour)},
	}

	in := Inputs{Pest: pest(types.InfestationNone), Market: samples}
	assert.Contains(t, ids(Generate(in)), RuleMarketHealthOpportunity)

	// Low infestation also qualifies as "healthy".
	in.Pest = pest(types.InfestationLow)
	assert.Contains(t, ids(Generate(in)), RuleMarketHealthOpportunity)

	// Without a pest report the health condition is unknown, not healthy.
	in.Pest = nil
	assert.NotContains(t, ids(Generate(in)), RuleMarketHealthOpportunity)

	// Fewer than two samples for the crop never trends.
	in.Pest = pest(types.InfestationNone)
	in.Market = samples[:1]
	assert.NotContains(t, ids(Generate(in)), RuleMarketHealthOpportunity)
}

func TestGenerate_MarketTrendCaseInsensitiveAndCorn(t *testing.T) {
	now := time.Now()
	in := Inputs{
		Pest: pest(types.InfestationNone),
		Market: []types.MarketSample{
			{CropName: "corn", PricePerKg: 23, CreatedAt: now},
			{CropName: "CORN", PricePerKg: 20, CreatedAt: now.Add(-time.Hour)},
		},
	}
	assert.Contains(t, ids(Generate(in)), RuleMarketHealthOpportunity)
}

func TestMarketTrendingUp_WindowAndThreshold(t *testing.T) {
	now := time.Now()
	mk := func(prices ...float64) []types.MarketSample {
		samples := make([]types.MarketSample, len(prices))
		for i, p := range prices {
			samples[i] = types.MarketSample{
				CropName:   "Maize",
				PricePerKg: p,
				CreatedAt:  now.Add(-time.Duration(i) * time.Hour),
			}
		}
		return samples
	}

	// Latest 11 vs avg 10: not strictly above 1.1x.
	assert.False(t, marketTrendingUp(mk(11, 10, 10), "Maize"))
	// Latest 11.01 vs avg 10: above.
	assert.True(t, marketTrendingUp(mk(11.01, 10, 10), "Maize"))
	// Only the 4 most recent previous samples count: the old 100 outlier
	// is outside the window.
	assert.True(t, marketTrendingUp(mk(12, 10, 10, 10, 10, 100), "Maize"))
}

func TestGenerate_CriticalPestIgnoresConfidence(t *testing.T) {
	p := pest(types.InfestationCritical)
	p.ConfidenceScore = nil

	recs := Generate(Inputs{Pest: p})
	require.Contains(t, ids(recs), RuleCriticalPest)
	for _, r := range recs {
		if r.ID == RuleCriticalPest {
			assert.Equal(t, types.UrgencyCritical, r.Urgency)
			assert.True(t, strings.Contains(r.Message, `data-dismiss-alert="critical-pest"`))
		}
	}

	// A low confidence score changes nothing.
	p.ConfidenceScore = fptr(0.05)
	assert.Contains(t, ids(Generate(Inputs{Pest: p})), RuleCriticalPest)
}

func TestGenerate_ExtremeHeatBoundary(t *testing.T) {
	in := Inputs{Weather: weatherWith(38, nil, nil)}
	assert.NotContains(t, ids(Generate(in)), RuleExtremeHeat)

	in.Weather = weatherWith(38.1, nil, nil)
	assert.Contains(t, ids(Generate(in)), RuleExtremeHeat)
}

func TestGenerate_OptimalConditions(t *testing.T) {
	in := Inputs{
		Sensor:  &types.SensorSnapshot{SoilMoisture: fptr(60)},
		Pest:    pest(types.InfestationNone),
		Weather: weatherWith(25, []int{0}, []float64{26, 27}),
	}
	assert.Equal(t, []string{RuleOptimalConditions}, ids(Generate(in)))

	// Boundary values are inclusive for temperature and moisture.
	in.Sensor.SoilMoisture = fptr(50)
	in.Weather = weatherWith(20, []int{0}, []float64{26, 27})
	assert.Contains(t, ids(Generate(in)), RuleOptimalConditions)

	in.Sensor.SoilMoisture = fptr(70)
	in.Weather = weatherWith(30, []int{0}, []float64{26, 27})
	assert.Contains(t, ids(Generate(in)), RuleOptimalConditions)

	// Any pest level other than none disqualifies.
	in.Pest = pest(types.InfestationLow)
	assert.NotContains(t, ids(Generate(in)), RuleOptimalConditions)
}

func TestSortByUrgency(t *testing.T) {
	recs := []types.Recommendation{
		{ID: "a", Urgency: types.UrgencyAdvice},
		{ID: "b", Urgency: types.UrgencyCritical},
		{ID: "c", Urgency: types.UrgencyWarning},
		{ID: "d", Urgency: types.UrgencyCritical},
		{ID: "e", Urgency: types.UrgencyNormal},
	}

	sorted := SortByUrgency(recs)
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, ids(sorted))
	// Input order is untouched.
	assert.Equal(t, "a", recs[0].ID)
}
