package weather_test

import (
	"context"
	"errors"
	"testing"

	"github.com/i474232898/weather-monitoring/internal/store"
	"github.com/i474232898/weather-monitoring/internal/weather"
)

func TestCheckThresholdsSingleTemperatureAlert(t *testing.T) {
	obs := weather.Observation{City: "Testville", Temperature: 36.0, Humidity: 40, WeatherMain: "Clear"}

	alerts := weather.CheckThresholds(obs, weather.DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.AlertType != weather.AlertHighTemperature {
		t.Fatalf("expected high_temperature, got %s", a.AlertType)
	}
	if a.ActualValue != 36.0 || a.ThresholdValue == nil || *a.ThresholdValue != 35.0 {
		t.Fatalf("unexpected values: actual=%v threshold=%v", a.ActualValue, a.ThresholdValue)
	}
	if a.Message != "High temperature alert! Current: 36°C, Threshold: 35°C" {
		t.Fatalf("unexpected message %q", a.Message)
	}
}

func TestCheckThresholdsAllConditionsInOrder(t *testing.T) {
	obs := weather.Observation{
		City:               "Testville",
		Temperature:        40.0,
		Humidity:           90,
		WeatherMain:        "Tornado",
		WeatherDescription: "tornado",
	}

	alerts := weather.CheckThresholds(obs, weather.DefaultThresholds())
	want := []weather.AlertType{weather.AlertHighTemperature, weather.AlertHighHumidity, weather.AlertExtremeWeather}
	if len(alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %d", len(want), len(alerts))
	}
	for i, typ := range want {
		if alerts[i].AlertType != typ {
			t.Fatalf("alert %d: expected %s, got %s", i, typ, alerts[i].AlertType)
		}
	}

	extreme := alerts[2]
	if extreme.ThresholdValue != nil || extreme.ActualValue != 0 {
		t.Fatalf("extreme alert should carry no threshold, got %+v", extreme)
	}
	if extreme.Message != "Extreme weather alert! Current condition: Tornado - tornado" {
		t.Fatalf("unexpected message %q", extreme.Message)
	}
	if alerts[1].Message != "High humidity alert! Current: 90%, Threshold: 80%" {
		t.Fatalf("unexpected message %q", alerts[1].Message)
	}
}

func TestCheckThresholdsBoundariesAreExclusive(t *testing.T) {
	obs := weather.Observation{Temperature: 35.0, Humidity: 80, WeatherMain: "Clear"}
	if alerts := weather.CheckThresholds(obs, weather.DefaultThresholds()); len(alerts) != 0 {
		t.Fatalf("expected no alerts at thresholds, got %d", len(alerts))
	}
}

func TestCheckThresholdsConditionMatchIsExact(t *testing.T) {
	obs := weather.Observation{Temperature: 10, Humidity: 10, WeatherMain: "thunderstorm"}
	if alerts := weather.CheckThresholds(obs, weather.DefaultThresholds()); len(alerts) != 0 {
		t.Fatalf("expected case-sensitive match, got %d alerts", len(alerts))
	}
}

func TestAlertEngineEvaluate(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := weather.NewAlertEngine(s, nil)

	alerts, err := engine.Evaluate(ctx, "Testville", weather.DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerts == nil || len(alerts) != 0 {
		t.Fatalf("expected empty non-nil slice without data, got %v", alerts)
	}

	if _, err := s.SaveObservation(ctx, weather.Observation{City: "Testville", Temperature: 36, Humidity: 40, WeatherMain: "Clear"}); err != nil {
		t.Fatalf("save observation: %v", err)
	}

	alerts, err = engine.Evaluate(ctx, "Testville", weather.DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID == 0 || alerts[0].CreatedAt.IsZero() {
		t.Fatalf("expected one persisted alert, got %+v", alerts)
	}

	recent, err := engine.Recent(ctx, "Testville", 10)
	if err != nil {
		t.Fatalf("recent alerts: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != alerts[0].ID {
		t.Fatalf("expected stored alert to be listed, got %+v", recent)
	}
}

func TestAlertEngineEvaluatesOnlyLatestObservation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := weather.NewAlertEngine(s, nil)

	s.SaveObservation(ctx, weather.Observation{City: "Testville", Temperature: 45, Humidity: 95, WeatherMain: "Hurricane"})
	s.SaveObservation(ctx, weather.Observation{City: "Testville", Temperature: 20, Humidity: 50, WeatherMain: "Clear"})

	alerts, err := engine.Evaluate(ctx, "Testville", weather.DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts for normal latest reading, got %d", len(alerts))
	}
}

func TestAlertEngineAcknowledge(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := weather.NewAlertEngine(s, nil)

	s.SaveObservation(ctx, weather.Observation{City: "Testville", Temperature: 40, Humidity: 10, WeatherMain: "Clear"})
	alerts, err := engine.Evaluate(ctx, "Testville", weather.DefaultThresholds())
	if err != nil || len(alerts) != 1 {
		t.Fatalf("evaluate: %v %v", alerts, err)
	}

	for i := 0; i < 2; i++ {
		acked, err := engine.Acknowledge(ctx, alerts[0].ID)
		if err != nil {
			t.Fatalf("acknowledge #%d: %v", i+1, err)
		}
		if !acked.IsSent {
			t.Fatalf("expected alert to be marked sent")
		}
	}

	if _, err := engine.Acknowledge(ctx, 9999); !errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAlertEngineRecentDefaultsNonPositiveLimit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := weather.NewAlertEngine(s, nil)

	batch := make([]weather.Alert, weather.DefaultLatestLimit+3)
	for i := range batch {
		batch[i] = weather.Alert{City: "Testville", AlertType: weather.AlertExtremeWeather, Message: "storm"}
	}
	if _, err := s.SaveAlerts(ctx, batch); err != nil {
		t.Fatalf("save alerts: %v", err)
	}

	for _, limit := range []int{0, -5} {
		recent, err := engine.Recent(ctx, "Testville", limit)
		if err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
		if len(recent) != weather.DefaultLatestLimit {
			t.Fatalf("limit %d: expected %d alerts, got %d", limit, weather.DefaultLatestLimit, len(recent))
		}
	}
}
