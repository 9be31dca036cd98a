package weather

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AlertType identifies which threshold an Alert violated.
type AlertType string

const (
	AlertHighTemperature AlertType = "high_temperature"
	AlertHighHumidity    AlertType = "high_humidity"
	AlertExtremeWeather  AlertType = "extreme_weather"
)

// RawObservation is a provider reading parsed into the fields we persist.
// It carries no id or timestamp; those are assigned by the store.
type RawObservation struct {
	City               string
	Temperature        float64
	FeelsLike          float64
	TempMin            float64
	TempMax            float64
	Humidity           int
	Pressure           int
	WeatherMain        string
	WeatherDescription string
	WindSpeed          float64
	CloudCover         int
}

// Observation is one persisted weather reading for a city.
type Observation struct {
	ID                 int64     `db:"id" json:"id"`
	City               string    `db:"city" json:"city"`
	Temperature        float64   `db:"temperature" json:"temperature"`
	FeelsLike          float64   `db:"feels_like" json:"feels_like"`
	TempMin            float64   `db:"temp_min" json:"temp_min"`
	TempMax            float64   `db:"temp_max" json:"temp_max"`
	Humidity           int       `db:"humidity" json:"humidity"`
	Pressure           int       `db:"pressure" json:"pressure"`
	WeatherMain        string    `db:"weather_main" json:"weather_main"`
	WeatherDescription string    `db:"weather_description" json:"weather_description"`
	WindSpeed          float64   `db:"wind_speed" json:"wind_speed"`
	CloudCover         int       `db:"cloud_cover" json:"cloud_cover"`
	RecordedAt         time.Time `db:"recorded_at" json:"recorded_at"` // always UTC
	IsDeleted          bool      `db:"is_deleted" json:"-"`
}

// NewObservation builds an unsaved Observation from a provider reading.
func NewObservation(raw RawObservation) Observation {
	return Observation{
		City:               raw.City,
		Temperature:        raw.Temperature,
		FeelsLike:          raw.FeelsLike,
		TempMin:            raw.TempMin,
		TempMax:            raw.TempMax,
		Humidity:           raw.Humidity,
		Pressure:           raw.Pressure,
		WeatherMain:        raw.WeatherMain,
		WeatherDescription: raw.WeatherDescription,
		WindSpeed:          raw.WindSpeed,
		CloudCover:         raw.CloudCover,
	}
}

// TrendPoint is one sample in a Summary's trend.
type TrendPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidity"`
}

// TrendData is stored as a JSON document (jsonb on Postgres, TEXT on SQLite).
type TrendData []TrendPoint

// Scan implements sql.Scanner.
func (t *TrendData) Scan(src interface{}) error {
	if t == nil {
		return fmt.Errorf("weather: Scan on nil *TrendData")
	}
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = TrendData{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("weather: cannot scan type %T into TrendData", src)
	}
	var out []TrendPoint
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if out == nil {
		out = []TrendPoint{}
	}
	*t = out
	return nil
}

// Value implements driver.Valuer.
func (t TrendData) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]TrendPoint(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Summary is an immutable aggregate over a trailing window of observations.
type Summary struct {
	ID             int64     `db:"id" json:"id"`
	City           string    `db:"city" json:"city"`
	AvgTemperature float64   `db:"avg_temperature" json:"avg_temperature"`
	MaxTemperature float64   `db:"max_temperature" json:"max_temperature"`
	MinTemperature float64   `db:"min_temperature" json:"min_temperature"`
	AvgHumidity    float64   `db:"avg_humidity" json:"avg_humidity"`
	TrendData      TrendData `db:"trend_data" json:"trend_data"`
	ComputedAt     time.Time `db:"computed_at" json:"computed_at"`
}

// Alert is a persisted threshold violation. Only IsSent ever changes after insert.
type Alert struct {
	ID             int64     `db:"id" json:"id"`
	City           string    `db:"city" json:"city"`
	AlertType      AlertType `db:"alert_type" json:"alert_type"`
	Message        string    `db:"message" json:"message"`
	ThresholdValue *float64  `db:"threshold_value" json:"threshold_value"`
	ActualValue    float64   `db:"actual_value" json:"actual_value"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	IsSent         bool      `db:"is_sent" json:"is_sent"`
}

// Thresholds configures an alert evaluation.
type Thresholds struct {
	HighTemperature          float64  `json:"high_temperature"`
	HighHumidity             int      `json:"high_humidity"`
	ExtremeWeatherConditions []string `json:"extreme_weather_conditions"`
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighTemperature:          35.0,
		HighHumidity:             80,
		ExtremeWeatherConditions: []string{"Thunderstorm", "Heavy Rain", "Storm", "Tornado", "Hurricane"},
	}
}
