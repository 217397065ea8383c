package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleForecast = `{
	"current": {
		"temperature_2m": 27.3,
		"relative_humidity_2m": 64,
		"weather_code": 61
	},
	"daily": {
		"time": ["2026-03-12", "2026-03-13"],
		"weather_code": [61, 95],
		"temperature_2m_max": [29.1, 24.8],
		"temperature_2m_min": [17.2, 16.5]
	}
}`

func TestForecast_RequestAndMapping(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, forecastPath, r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleForecast))
	}))
	defer srv.Close()

	base := NewBaseClient(srv.Client(), "open-meteo", testPolicy(), WithSleepFunc(noSleep))
	client := NewOpenMeteoClient(base, srv.URL)

	snapshot, err := client.Forecast(context.Background(), -1.286389, 36.817223)
	require.NoError(t, err)

	// Coordinates are formatted to four decimal places.
	assert.Equal(t, "-1.2864", gotQuery.Get("latitude"))
	assert.Equal(t, "36.8172", gotQuery.Get("longitude"))
	assert.Equal(t, "temperature_2m,relative_humidity_2m,weather_code", gotQuery.Get("current"))
	assert.Equal(t, "temperature_2m_max,temperature_2m_min,weather_code", gotQuery.Get("daily"))
	assert.Equal(t, "auto", gotQuery.Get("timezone"))

	assert.Equal(t, 27.3, snapshot.Current.Temperature)
	assert.Equal(t, float64(64), snapshot.Current.Humidity)
	assert.Equal(t, 61, snapshot.Current.WeatherCode)
	assert.Equal(t, []string{"2026-03-12", "2026-03-13"}, snapshot.Daily.Dates)
	assert.Equal(t, []int{61, 95}, snapshot.Daily.WeatherCodes)
	assert.Equal(t, []float64{29.1, 24.8}, snapshot.Daily.TempMax)
	assert.Equal(t, []float64{17.2, 16.5}, snapshot.Daily.TempMin)
}

func TestForecast_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":`))
	}))
	defer srv.Close()

	base := NewBaseClient(srv.Client(), "open-meteo", testPolicy(), WithSleepFunc(noSleep))
	client := NewOpenMeteoClient(base, srv.URL)

	_, err := client.Forecast(context.Background(), 0, 0)
	require.Error(t, err)
}

func TestForecast_UpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	base := NewBaseClient(srv.Client(), "open-meteo", testPolicy(), WithSleepFunc(noSleep))
	client := NewOpenMeteoClient(base, srv.URL)

	_, err := client.Forecast(context.Background(), 0, 0)
	require.Error(t, err)
}
