package weather

import (
	"errors"
	"testing"
	"time"
)

func obsAt(id int64, at time.Time, temp float64, humidity int) Observation {
	return Observation{ID: id, City: "Testville", Temperature: temp, Humidity: humidity, RecordedAt: at}
}

func TestSummarizeEmptyWindow(t *testing.T) {
	_, err := Summarize("Testville", nil)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestSummarizeStatistics(t *testing.T) {
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	obs := []Observation{
		obsAt(1, base, 20.0, 50),
		obsAt(2, base.Add(time.Hour), 22.5, 55),
		obsAt(3, base.Add(2*time.Hour), 25.0, 61),
	}

	s, err := Summarize("Testville", obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.City != "Testville" {
		t.Fatalf("expected city Testville, got %q", s.City)
	}
	if s.AvgTemperature != 22.5 || s.MaxTemperature != 25 || s.MinTemperature != 20 {
		t.Fatalf("unexpected temperature stats: %+v", s)
	}
	if s.AvgHumidity != 55.33 {
		t.Fatalf("expected avg humidity 55.33, got %v", s.AvgHumidity)
	}
	if len(s.TrendData) != 3 {
		t.Fatalf("expected 3 trend points, got %d", len(s.TrendData))
	}
}

func TestSummarizeAverageStaysWithinRange(t *testing.T) {
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	var obs []Observation
	for i := 0; i < 7; i++ {
		obs = append(obs, obsAt(int64(i+1), base.Add(time.Duration(i)*time.Minute), 0.1, 40))
	}

	s, err := Summarize("Testville", obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.AvgTemperature < s.MinTemperature || s.AvgTemperature > s.MaxTemperature {
		t.Fatalf("avg %v outside [%v, %v]", s.AvgTemperature, s.MinTemperature, s.MaxTemperature)
	}
	if s.AvgTemperature != 0.1 {
		t.Fatalf("expected avg 0.1, got %v", s.AvgTemperature)
	}
}

func TestSummarizeTrendKeepsNewestTwelveAscending(t *testing.T) {
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	var obs []Observation
	// Inserted newest first to make sure the order is rebuilt.
	for i := 19; i >= 0; i-- {
		obs = append(obs, obsAt(int64(i+1), base.Add(time.Duration(i)*30*time.Minute), float64(i), 50))
	}

	s, err := Summarize("Testville", obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.TrendData) != TrendSize {
		t.Fatalf("expected %d trend points, got %d", TrendSize, len(s.TrendData))
	}
	for i := 1; i < len(s.TrendData); i++ {
		if !s.TrendData[i-1].Timestamp.Before(s.TrendData[i].Timestamp) {
			t.Fatalf("trend not ascending at %d", i)
		}
	}
	if s.TrendData[0].Temperature != 8 || s.TrendData[TrendSize-1].Temperature != 19 {
		t.Fatalf("trend should hold the newest readings, got first=%v last=%v",
			s.TrendData[0].Temperature, s.TrendData[TrendSize-1].Temperature)
	}
}

func TestBuildTrendBreaksTiesByID(t *testing.T) {
	at := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	trend := buildTrend([]Observation{obsAt(2, at, 2, 0), obsAt(1, at, 1, 0)})
	if trend[0].Temperature != 1 || trend[1].Temperature != 2 {
		t.Fatalf("expected id order for equal timestamps, got %+v", trend)
	}
}

func TestRound2(t *testing.T) {
	tests := map[float64]float64{
		10.0:    10,
		33.3333: 33.33,
		0.125:   0.13,
		-0.125:  -0.13,
		21.456:  21.46,
	}
	for in, want := range tests {
		if got := round2(in); got != want {
			t.Errorf("round2(%v) = %v, want %v", in, got, want)
		}
	}
}
