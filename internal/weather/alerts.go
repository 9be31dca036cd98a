package weather

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

// CheckThresholds evaluates one observation against thresholds and returns the
// unsaved alerts it triggers, in fixed order: temperature, humidity, extreme
// weather. Every condition is checked independently.
func CheckThresholds(obs Observation, th Thresholds) []Alert {
	var alerts []Alert

	if obs.Temperature > th.HighTemperature {
		threshold := th.HighTemperature
		alerts = append(alerts, Alert{
			City:      obs.City,
			AlertType: AlertHighTemperature,
			Message: fmt.Sprintf("High temperature alert! Current: %s°C, Threshold: %s°C",
				formatFloat(obs.Temperature), formatFloat(threshold)),
			ThresholdValue: &threshold,
			ActualValue:    obs.Temperature,
		})
	}

	if obs.Humidity > th.HighHumidity {
		threshold := float64(th.HighHumidity)
		alerts = append(alerts, Alert{
			City:      obs.City,
			AlertType: AlertHighHumidity,
			Message: fmt.Sprintf("High humidity alert! Current: %d%%, Threshold: %d%%",
				obs.Humidity, th.HighHumidity),
			ThresholdValue: &threshold,
			ActualValue:    float64(obs.Humidity),
		})
	}

	if slices.Contains(th.ExtremeWeatherConditions, obs.WeatherMain) {
		// No scalar threshold applies; ActualValue stays 0.
		alerts = append(alerts, Alert{
			City:      obs.City,
			AlertType: AlertExtremeWeather,
			Message: fmt.Sprintf("Extreme weather alert! Current condition: %s - %s",
				obs.WeatherMain, obs.WeatherDescription),
		})
	}

	return alerts
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type alertSource interface {
	ObservationStore
	AlertStore
}

// AlertEngine evaluates the latest observation of a city and records alerts.
type AlertEngine struct {
	store alertSource
	log   *zap.SugaredLogger
}

// NewAlertEngine creates a new AlertEngine.
func NewAlertEngine(store alertSource, log *zap.SugaredLogger) *AlertEngine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AlertEngine{store: store, log: log}
}

// Evaluate checks the most recent non-deleted observation for city. It returns
// an empty slice when there is no observation or conditions are normal.
func (e *AlertEngine) Evaluate(ctx context.Context, city string, th Thresholds) ([]Alert, error) {
	latest, err := e.store.LatestObservations(ctx, city, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		e.log.Warnw("no weather data found for alert checking", "city", city)
		return []Alert{}, nil
	}

	alerts := CheckThresholds(latest[0], th)
	if len(alerts) == 0 {
		return []Alert{}, nil
	}

	saved, err := e.store.SaveAlerts(ctx, alerts)
	if err != nil {
		return nil, err
	}
	e.log.Infow("created weather alerts", "city", city, "count", len(saved))
	return saved, nil
}

// Acknowledge marks an alert as sent. Acknowledging twice is a no-op.
func (e *AlertEngine) Acknowledge(ctx context.Context, id int64) (Alert, error) {
	alert, err := e.store.AcknowledgeAlert(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.log.Errorw("acknowledge alert failed", "id", id, "error", err)
		}
		return Alert{}, err
	}
	return alert, nil
}

// Recent returns up to limit alerts for city, newest first. A limit of zero
// or less falls back to DefaultLatestLimit.
func (e *AlertEngine) Recent(ctx context.Context, city string, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	return e.store.RecentAlerts(ctx, city, limit)
}
