package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/config"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

const forecastBody = `{
  "location": {"name": "Cordoba"},
  "current": {"temp_c": 21.6, "wind_kph": 10.2, "humidity": 40, "condition": {"text": "Soleado", "icon": "//cdn.weatherapi.com/113.png"}},
  "forecast": {"forecastday": [
    {"date": "2026-03-02", "day": {"maxtemp_c": 27.4, "maxwind_kph": 18.5, "avghumidity": 55, "condition": {"text": "Nublado", "icon": "//cdn.weatherapi.com/119.png"}}}
  ]}
}`

func weatherServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newWeather(url string) *service.WeatherClient {
	return service.NewWeatherClient(config.WeatherConfig{APIKey: "k", BaseURL: url, Days: 3, Lang: "es", Timeout: time.Second})
}

func TestWeather_ForecastDay(t *testing.T) {
	srv, seen := weatherServer(t, http.StatusOK, forecastBody)

	w, err := newWeather(srv.URL).Forecast(context.Background(), "Cordoba", "02/03/2026")
	require.NoError(t, err)
	require.True(t, w.IsForecast)
	require.Equal(t, "2026-03-02", w.Date)
	require.Equal(t, 27, w.TempC)
	require.Equal(t, 19, w.WindKph)
	require.Equal(t, "Nublado", w.Condition)
	require.Equal(t, "https://cdn.weatherapi.com/119.png", w.Icon)

	require.Equal(t, "/forecast.json", seen.URL.Path)
	require.Equal(t, "Cordoba", seen.URL.Query().Get("q"))
	require.Equal(t, "3", seen.URL.Query().Get("days"))
}

func TestWeather_FallsBackToCurrent(t *testing.T) {
	srv, _ := weatherServer(t, http.StatusOK, forecastBody)

	w, err := newWeather(srv.URL).Forecast(context.Background(), "Cordoba", "2026-04-20")
	require.NoError(t, err)
	require.False(t, w.IsForecast)
	require.Equal(t, 22, w.TempC)
	require.Equal(t, "Soleado", w.Condition)
}

func TestWeather_Errors(t *testing.T) {
	_, err := service.NewWeatherClient(config.WeatherConfig{}).Forecast(context.Background(), "Cordoba", "")
	require.ErrorIs(t, err, service.ErrFeatureDisabled)

	srv, _ := weatherServer(t, http.StatusBadRequest, `{"error":{"message":"No matching location found."}}`)
	_, err = newWeather(srv.URL).Forecast(context.Background(), "Atlantis", "")
	require.ErrorIs(t, err, service.ErrValidation)
	require.Contains(t, err.Error(), "No matching location")

	_, err = newWeather(srv.URL).Forecast(context.Background(), "  ", "")
	require.ErrorIs(t, err, service.ErrValidation)

	down, _ := weatherServer(t, http.StatusInternalServerError, `oops`)
	_, err = newWeather(down.URL).Forecast(context.Background(), "Cordoba", "")
	require.Error(t, err)
	require.NotErrorIs(t, err, service.ErrValidation)
}
