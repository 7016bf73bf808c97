package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/fishing-club-booking/internal/config"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

const defaultConditionIcon = "https://cdn.weatherapi.com/weather/64x64/day/113.png"

// Weather is the summary shown next to a club or a reservation date.
type Weather struct {
	Location   string `json:"location"`
	Date       string `json:"date,omitempty"`
	TempC      int    `json:"temp_c"`
	Condition  string `json:"condition"`
	Icon       string `json:"icon"`
	WindKph    int    `json:"wind_kph"`
	Humidity   int    `json:"humidity"`
	IsForecast bool   `json:"is_forecast"`
}

type wxCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

type wxResponse struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Current *struct {
		TempC     float64     `json:"temp_c"`
		WindKph   float64     `json:"wind_kph"`
		Humidity  float64     `json:"humidity"`
		Condition wxCondition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Days []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC    float64     `json:"maxtemp_c"`
				MaxWindKph  float64     `json:"maxwind_kph"`
				AvgHumidity float64     `json:"avghumidity"`
				Condition   wxCondition `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// WeatherClient queries WeatherAPI's forecast endpoint.
type WeatherClient struct {
	cfg  config.WeatherConfig
	http *http.Client
}

func NewWeatherClient(cfg config.WeatherConfig) *WeatherClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WeatherClient{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// Enabled reports whether an API key is configured.
func (w *WeatherClient) Enabled() bool { return w != nil && w.cfg.APIKey != "" }

// Forecast returns the forecast day matching rawDate when it falls inside
// the forecast window and the current conditions otherwise.
func (w *WeatherClient) Forecast(ctx context.Context, location, rawDate string) (Weather, error) {
	if !w.Enabled() {
		return Weather{}, ErrFeatureDisabled
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return Weather{}, invalid("location is required")
	}
	wantDate := ""
	if strings.TrimSpace(rawDate) != "" {
		d, err := utils.ParseDate(rawDate)
		if err != nil {
			return Weather{}, invalid("%v", err)
		}
		wantDate = utils.FormatDate(d)
	}

	q := url.Values{}
	q.Set("key", w.cfg.APIKey)
	q.Set("q", location)
	q.Set("days", strconv.Itoa(w.cfg.Days))
	q.Set("aqi", "no")
	q.Set("alerts", "no")
	q.Set("lang", w.cfg.Lang)
	endpoint := strings.TrimRight(w.cfg.BaseURL, "/") + "/forecast.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Weather{}, err
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return Weather{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Weather{}, fmt.Errorf("weather read: %w", err)
	}
	var data wxResponse
	if err := json.Unmarshal(body, &data); err != nil && resp.StatusCode == http.StatusOK {
		return Weather{}, fmt.Errorf("weather decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("weather api status %d", resp.StatusCode)
		if data.Error != nil && data.Error.Message != "" {
			msg = data.Error.Message
		}
		if resp.StatusCode == http.StatusBadRequest {
			return Weather{}, invalid("%s", msg)
		}
		return Weather{}, fmt.Errorf("%s", msg)
	}
	return pickWeather(data, location, wantDate)
}

func pickWeather(data wxResponse, location, date string) (Weather, error) {
	out := Weather{Location: location}
	if data.Location.Name != "" {
		out.Location = data.Location.Name
	}
	if date != "" {
		for _, d := range data.Forecast.Days {
			if d.Date != date {
				continue
			}
			out.Date = date
			out.TempC = roundInt(d.Day.MaxTempC)
			out.WindKph = roundInt(d.Day.MaxWindKph)
			out.Humidity = roundInt(d.Day.AvgHumidity)
			out.Condition, out.Icon = condition(d.Day.Condition)
			out.IsForecast = true
			return out, nil
		}
	}
	if data.Current == nil {
		return Weather{}, fmt.Errorf("weather api returned no data")
	}
	out.TempC = roundInt(data.Current.TempC)
	out.WindKph = roundInt(data.Current.WindKph)
	out.Humidity = roundInt(data.Current.Humidity)
	out.Condition, out.Icon = condition(data.Current.Condition)
	return out, nil
}

func condition(c wxCondition) (text, icon string) {
	text = firstNonEmpty(c.Text, "Despejado")
	icon = c.Icon
	switch {
	case icon == "":
		icon = defaultConditionIcon
	case strings.HasPrefix(icon, "//"):
		icon = "https:" + icon
	}
	return text, icon
}

func roundInt(f float64) int { return int(math.Round(f)) }
