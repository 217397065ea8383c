package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"cropguard/internal/types"
)

// forecastPath is the Open-Meteo forecast endpoint. The query mirrors the
// variables the advisory engine consumes: current temperature, humidity and
// weather code plus the daily max/min temperature and weather code arrays.
const forecastPath = "/v1/forecast"

// OpenMeteoClient fetches forecasts from the Open-Meteo API.
type OpenMeteoClient struct {
	base    *BaseClient
	baseURL string
}

// NewOpenMeteoClient creates an OpenMeteoClient against the given base URL
// (e.g. https://api.open-meteo.com).
func NewOpenMeteoClient(base *BaseClient, baseURL string) *OpenMeteoClient {
	return &OpenMeteoClient{base: base, baseURL: baseURL}
}

var _ types.WeatherSource = (*OpenMeteoClient)(nil)

// openMeteoResponse matches the provider's JSON shape for the variables we
// request.
type openMeteoResponse struct {
	Current struct {
		Temperature2m      float64 `json:"temperature_2m"`
		RelativeHumidity2m float64 `json:"relative_humidity_2m"`
		WeatherCode        int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Time             []string  `json:"time"`
		WeatherCode      []int     `json:"weather_code"`
		Temperature2mMax []float64 `json:"temperature_2m_max"`
		Temperature2mMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// Forecast retrieves the current conditions and daily forecast for the
// coordinate and maps them into the domain snapshot.
func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,weather_code")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+forecastPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build forecast request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather,
			fmt.Sprintf("forecast provider returned status %d", resp.StatusCode), nil)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode forecast response", err)
	}

	return &types.WeatherSnapshot{
		Current: types.CurrentWeather{
			Temperature: body.Current.Temperature2m,
			Humidity:    body.Current.RelativeHumidity2m,
			WeatherCode: body.Current.WeatherCode,
		},
		Daily: types.DailyForecast{
			Dates:        body.Daily.Time,
			WeatherCodes: body.Daily.WeatherCode,
			TempMax:      body.Daily.Temperature2mMax,
			TempMin:      body.Daily.Temperature2mMin,
		},
	}, nil
}
