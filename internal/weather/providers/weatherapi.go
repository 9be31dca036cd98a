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

	"github.com/i474232898/weather-monitoring/internal/common"
	"github.com/i474232898/weather-monitoring/internal/weather"
)

// DefaultWeatherAPIBaseURL is the WeatherAPI.com v1 API root.
const DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

// WeatherAPIProvider implements the weather.Source interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey, baseURL string, timeout time.Duration) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIBaseURL
	}
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  client,
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// Fetch returns the current conditions for city. WeatherAPI's current endpoint
// has no daily range, so TempMin and TempMax repeat the current temperature.
func (p *WeatherAPIProvider) Fetch(ctx context.Context, city string) (weather.RawObservation, error) {
	if p.apiKey == "" {
		return weather.RawObservation{}, unavailable(errors.New("weatherapi api key is not configured"))
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", city)
	u := fmt.Sprintf("%s/current.json?%s", p.baseURL, values.Encode())

	var payload struct {
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		Current struct {
			TempC      float64 `json:"temp_c"`
			FeelsLikeC float64 `json:"feelslike_c"`
			Humidity   int     `json:"humidity"`
			PressureMb float64 `json:"pressure_mb"`
			WindKph    float64 `json:"wind_kph"`
			Cloud      int     `json:"cloud"`
			Condition  struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.client, p.circuit, p.timeout, u, &payload); err != nil {
		return weather.RawObservation{}, err
	}

	name := payload.Location.Name
	if name == "" {
		name = city
	}
	text := payload.Current.Condition.Text

	// Convert wind from kph to m/s (approx).
	windMS := payload.Current.WindKph / 3.6

	return weather.RawObservation{
		City:               name,
		Temperature:        payload.Current.TempC,
		FeelsLike:          payload.Current.FeelsLikeC,
		TempMin:            payload.Current.TempC,
		TempMax:            payload.Current.TempC,
		Humidity:           payload.Current.Humidity,
		Pressure:           int(math.Round(payload.Current.PressureMb)),
		WeatherMain:        mapWeatherAPICondition(text),
		WeatherDescription: strings.ToLower(text),
		WindSpeed:          windMS,
		CloudCover:         payload.Current.Cloud,
	}, nil
}

// mapWeatherAPICondition normalizes WeatherAPI condition text to the
// OpenWeatherMap category labels alert thresholds are written against.
func mapWeatherAPICondition(text string) string {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return "Unknown"
	case common.HasAny(t, "thunder", "storm"):
		return "Thunderstorm"
	case common.HasAny(t, "heavy rain", "torrential"):
		return "Heavy Rain"
	case common.HasAny(t, "drizzle"):
		return "Drizzle"
	case common.HasAny(t, "rain", "shower"):
		return "Rain"
	case common.HasAny(t, "snow", "sleet", "blizzard", "ice pellets"):
		return "Snow"
	case common.HasAny(t, "fog"):
		return "Fog"
	case common.HasAny(t, "mist"):
		return "Mist"
	case common.HasAny(t, "cloud", "overcast"):
		return "Clouds"
	case common.HasAny(t, "sunny", "clear"):
		return "Clear"
	default:
		return text
	}
}
