package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard/internal/types"
)

type fakeSink struct {
	inserted  []types.Alert
	sinces    []time.Time
	duplicate bool
	err       error
}

func (f *fakeSink) InsertIfAbsent(_ context.Context, a *types.Alert, since time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.sinces = append(f.sinces, since)
	if f.duplicate {
		return false, nil
	}
	f.inserted = append(f.inserted, *a)
	return true, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func fptr(v float64) *float64 { return &v }

var testNow = time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)

func TestSensorEvaluate_NilSnapshot(t *testing.T) {
	sink := &fakeSink{}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	assert.Zero(t, eval.Evaluate(context.Background(), "farm-1", nil))
	assert.Empty(t, sink.inserted)
}

func TestSensorEvaluate_NilFieldsSkipChecks(t *testing.T) {
	sink := &fakeSink{}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", &types.SensorSnapshot{})
	assert.Zero(t, created)
	assert.Empty(t, sink.inserted)
}

func TestSensorEvaluate_LowSoilMoisture(t *testing.T) {
	sink := &fakeSink{}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", &types.SensorSnapshot{SoilMoisture: fptr(29.9)})
	require.Equal(t, 1, created)
	require.Len(t, sink.inserted, 1)

	a := sink.inserted[0]
	assert.Equal(t, "Low Soil Moisture", a.AlertType)
	assert.Equal(t, types.SeverityCritical, a.Severity)
	assert.Equal(t, types.CategoryMoisture, a.Category)
	assert.Equal(t, 3, a.Priority)
	assert.False(t, a.IsRead)
	assert.Contains(t, a.Message, "29.9%")
	// Dedup window is 6 hours.
	assert.Equal(t, testNow.Add(-6*time.Hour), sink.sinces[0])
}

func TestSensorEvaluate_BoundariesAreStrict(t *testing.T) {
	sink := &fakeSink{}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	snapshot := &types.SensorSnapshot{
		SoilMoisture:   fptr(30),   // not < 30, not > 80
		Temperature:    fptr(38),   // not > 38, not < 10
		Humidity:       fptr(40),   // not < 40
		LightIntensity: fptr(3000), // not < 3000
	}
	assert.Zero(t, eval.Evaluate(context.Background(), "farm-1", snapshot))
	assert.Empty(t, sink.inserted)
}

func TestSensorEvaluate_HighAndLowAreMutuallyExclusive(t *testing.T) {
	sink := &fakeSink{}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", &types.SensorSnapshot{SoilMoisture: fptr(85)})
	require.Equal(t, 1, created)
	assert.Equal(t, "High Soil Moisture", sink.inserted[0].AlertType)
	assert.Equal(t, types.SeverityHigh, sink.inserted[0].Severity)
}

func TestSensorEvaluate_MultipleBreaches(t *testing.T) {
	sink := &fakeSink{}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	snapshot := &types.SensorSnapshot{
		SoilMoisture:   fptr(25),
		Temperature:    fptr(39),
		Humidity:       fptr(35),
		LightIntensity: fptr(2500),
	}
	created := eval.Evaluate(context.Background(), "farm-1", snapshot)
	assert.Equal(t, 4, created)

	gotTypes := make([]string, len(sink.inserted))
	for i, a := range sink.inserted {
		gotTypes[i] = a.AlertType
	}
	assert.Equal(t, []string{
		"Low Soil Moisture",
		"Extreme Heat Alert",
		"Low Humidity Alert",
		"Low Light Intensity",
	}, gotTypes)
}

func TestSensorEvaluate_ColdTemperature(t *testing.T) {
	sink := &fakeSink{}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", &types.SensorSnapshot{Temperature: fptr(9.5)})
	require.Equal(t, 1, created)
	assert.Equal(t, "Cold Temperature Alert", sink.inserted[0].AlertType)
	assert.Equal(t, types.CategoryIrrigation, sink.inserted[0].Category)
}

func TestSensorEvaluate_DuplicateSuppressed(t *testing.T) {
	sink := &fakeSink{duplicate: true}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	created := eval.Evaluate(context.Background(), "farm-1", &types.SensorSnapshot{SoilMoisture: fptr(10)})
	assert.Zero(t, created)
}

func TestSensorEvaluate_SinkErrorSwallowed(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	eval := NewSensorEvaluator(sink, fixedClock{t: testNow}, nil)

	// Must not panic or propagate; returns zero created.
	created := eval.Evaluate(context.Background(), "farm-1", &types.SensorSnapshot{
		SoilMoisture: fptr(10),
		Temperature:  fptr(40),
	})
	assert.Zero(t, created)
}
