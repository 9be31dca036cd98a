package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-monitoring/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements the weather.Source interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string, timeout time.Duration) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  client,
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch returns the current conditions for city in metric units.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (weather.RawObservation, error) {
	if p.apiKey == "" {
		return weather.RawObservation{}, unavailable(errors.New("openweather api key is not configured"))
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	u := fmt.Sprintf("%s/weather?%s", p.baseURL, values.Encode())

	var payload struct {
		Name string `json:"name"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Humidity  float64 `json:"humidity"`
			Pressure  float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Clouds struct {
			All float64 `json:"all"`
		} `json:"clouds"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := getJSON(ctx, p.client, p.circuit, p.timeout, u, &payload); err != nil {
		return weather.RawObservation{}, err
	}
	if len(payload.Weather) == 0 {
		return weather.RawObservation{}, unavailable(errors.New("openweather response has no weather conditions"))
	}

	name := payload.Name
	if name == "" {
		name = city
	}

	return weather.RawObservation{
		City:               name,
		Temperature:        payload.Main.Temp,
		FeelsLike:          payload.Main.FeelsLike,
		TempMin:            payload.Main.TempMin,
		TempMax:            payload.Main.TempMax,
		Humidity:           int(math.Round(payload.Main.Humidity)),
		Pressure:           int(math.Round(payload.Main.Pressure)),
		WeatherMain:        payload.Weather[0].Main,
		WeatherDescription: payload.Weather[0].Description,
		WindSpeed:          payload.Wind.Speed,
		CloudCover:         int(math.Round(payload.Clouds.All)),
	}, nil
}
