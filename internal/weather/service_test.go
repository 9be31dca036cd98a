package weather_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/i474232898/weather-monitoring/internal/store"
	"github.com/i474232898/weather-monitoring/internal/weather"
)

type fakeSource struct {
	obs   weather.RawObservation
	err   error
	calls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, city string) (weather.RawObservation, error) {
	f.calls++
	if f.err != nil {
		return weather.RawObservation{}, f.err
	}
	return f.obs, nil
}

func TestServiceFetchAndStore(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{obs: weather.RawObservation{Temperature: 21.3, Humidity: 55, WeatherMain: "Clouds"}}
	s := store.NewMemoryStore()
	svc := weather.NewService(src, s, nil)

	saved, err := svc.FetchAndStore(ctx, "Testville")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == 0 || saved.RecordedAt.IsZero() {
		t.Fatalf("expected store-assigned fields, got %+v", saved)
	}
	if saved.City != "Testville" {
		t.Fatalf("expected city to default to the requested one, got %q", saved.City)
	}
	if saved.RecordedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", saved.RecordedAt.Location())
	}

	latest, err := svc.Latest(ctx, "Testville", 0)
	if err != nil || len(latest) != 1 || latest[0].ID != saved.ID {
		t.Fatalf("expected saved observation to be listed, got %v %v", latest, err)
	}
}

func TestServiceFetchFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{err: fmt.Errorf("%w: boom", weather.ErrSourceUnavailable)}
	s := store.NewMemoryStore()
	svc := weather.NewService(src, s, nil)

	if _, err := svc.FetchAndStore(ctx, "Testville"); !errors.Is(err, weather.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected exactly one fetch attempt, got %d", src.calls)
	}
	latest, _ := s.LatestObservations(ctx, "Testville", 10)
	if len(latest) != 0 {
		t.Fatalf("expected no stored observations, got %d", len(latest))
	}
}

func TestServiceWithoutSource(t *testing.T) {
	svc := weather.NewService(nil, store.NewMemoryStore(), nil)
	if _, err := svc.FetchAndStore(context.Background(), "Testville"); !errors.Is(err, weather.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestServiceLatestDefaultLimit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := weather.NewService(&fakeSource{}, s, nil)
	for i := 0; i < weather.DefaultLatestLimit+5; i++ {
		s.SaveObservation(ctx, weather.Observation{City: "Testville", Temperature: float64(i)})
	}

	latest, err := svc.Latest(ctx, "Testville", -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(latest) != weather.DefaultLatestLimit {
		t.Fatalf("expected %d rows, got %d", weather.DefaultLatestLimit, len(latest))
	}
	if latest[0].Temperature != float64(weather.DefaultLatestLimit+4) {
		t.Fatalf("expected newest first, got %v", latest[0].Temperature)
	}
}

func TestServiceCleanup(t *testing.T) {
	ctx := context.Background()
	clk := &settableClock{}
	s := store.NewMemoryStore(store.WithClock(clk.Now))
	svc := weather.NewService(&fakeSource{}, s, nil)

	now := time.Now().UTC()
	clk.Set(now.Add(-72 * time.Hour))
	s.SaveObservation(ctx, weather.Observation{City: "Testville"})
	s.SaveObservation(ctx, weather.Observation{City: "Testville"})
	clk.Set(now.Add(-time.Hour))
	s.SaveObservation(ctx, weather.Observation{City: "Testville"})
	clk.Set(now)

	n, err := svc.Cleanup(ctx, 2, false)
	if err != nil || n != 2 {
		t.Fatalf("soft cleanup: n=%d err=%v", n, err)
	}
	n, err = svc.Cleanup(ctx, 2, false)
	if err != nil || n != 0 {
		t.Fatalf("repeated soft cleanup should affect nothing: n=%d err=%v", n, err)
	}

	latest, _ := svc.Latest(ctx, "Testville", 10)
	if len(latest) != 1 {
		t.Fatalf("expected one visible observation, got %d", len(latest))
	}

	n, err = svc.Cleanup(ctx, 2, true)
	if err != nil || n != 2 {
		t.Fatalf("hard cleanup: n=%d err=%v", n, err)
	}

	if _, err := svc.Cleanup(ctx, -1, false); err == nil {
		t.Fatalf("expected an error for negative days")
	}
}
