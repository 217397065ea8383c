package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard/internal/types"
)

func TestWeatherEvaluate_NoBreaches(t *testing.T) {
	sink := &fakeSink{}
	eval := NewWeatherEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", types.CurrentWeather{
		Temperature: 22,
		Humidity:    60,
		WeatherCode: 0,
	})
	assert.Zero(t, created)
	assert.Empty(t, sink.inserted)
}

func TestWeatherEvaluate_HighTemperature(t *testing.T) {
	sink := &fakeSink{}
	eval := NewWeatherEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", types.CurrentWeather{Temperature: 36.4, Humidity: 50})
	require.Equal(t, 1, created)

	a := sink.inserted[0]
	assert.Equal(t, "High Temperature Warning", a.AlertType)
	assert.Equal(t, types.SeverityCritical, a.Severity)
	assert.Equal(t, types.CategoryWeather, a.Category)
	assert.Equal(t, 2, a.Priority)
	// Temperature is rounded to the nearest degree in the message.
	assert.Contains(t, a.Message, "36°C")
	// Dedup window is 24 hours.
	assert.Equal(t, testNow.Add(-24*time.Hour), sink.sinces[0])
}

func TestWeatherEvaluate_BoundariesAreStrict(t *testing.T) {
	sink := &fakeSink{}
	eval := NewWeatherEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", types.CurrentWeather{
		Temperature: 35, // not > 35, not < 5
		Humidity:    80, // not > 80
		WeatherCode: 0,
	})
	assert.Zero(t, created)
}

func TestWeatherEvaluate_StormTakesPrecedenceOverHeavyRain(t *testing.T) {
	// Code 96 is both >= 95 (storm) and outside [61,67]; only the storm
	// branch may fire, and only once.
	sink := &fakeSink{}
	eval := NewWeatherEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", types.CurrentWeather{Temperature: 20, Humidity: 50, WeatherCode: 96})
	require.Equal(t, 1, created)
	assert.Equal(t, "Severe Weather Alert", sink.inserted[0].AlertType)
}

func TestWeatherEvaluate_HeavyRain(t *testing.T) {
	sink := &fakeSink{}
	eval := NewWeatherEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", types.CurrentWeather{Temperature: 20, Humidity: 50, WeatherCode: 67})
	require.Equal(t, 1, created)
	assert.Equal(t, "Heavy Rainfall Alert", sink.inserted[0].AlertType)
	assert.Equal(t, types.SeverityHigh, sink.inserted[0].Severity)
}

func TestWeatherEvaluate_FrostRisk(t *testing.T) {
	sink := &fakeSink{}
	eval := NewWeatherEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", types.CurrentWeather{Temperature: 4.6, Humidity: 50})
	require.Equal(t, 1, created)
	assert.Equal(t, "Frost Risk Warning", sink.inserted[0].AlertType)
	assert.Contains(t, sink.inserted[0].Message, "5°C")
}

func TestWeatherEvaluate_MultipleBreaches(t *testing.T) {
	sink := &fakeSink{}
	eval := NewWeatherEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", types.CurrentWeather{
		Temperature: 37,
		Humidity:    85,
		WeatherCode: 95,
	})
	assert.Equal(t, 3, created)

	gotTypes := make([]string, len(sink.inserted))
	for i, a := range sink.inserted {
		gotTypes[i] = a.AlertType
	}
	assert.Equal(t, []string{
		"High Temperature Warning",
		"High Humidity Alert",
		"Severe Weather Alert",
	}, gotTypes)
}
