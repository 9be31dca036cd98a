package weather

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrendSize is the number of most recent observations kept in a Summary's trend.
const TrendSize = 12

// Summarize combines a window of observations into an unsaved Summary.
// Temperatures and humidity are plain (unweighted) arithmetic means. All four
// statistics are rounded to 2 decimals, half away from zero. It returns
// ErrNoData for an empty window.
func Summarize(city string, observations []Observation) (Summary, error) {
	if len(observations) == 0 {
		return Summary{}, ErrNoData
	}

	temps := make([]float64, len(observations))
	humidity := make([]float64, len(observations))
	for i, o := range observations {
		temps[i] = o.Temperature
		humidity[i] = float64(o.Humidity)
	}

	maxTemp := floats.Max(temps)
	minTemp := floats.Min(temps)
	avgTemp := clamp(stat.Mean(temps, nil), minTemp, maxTemp)

	return Summary{
		City:           city,
		AvgTemperature: round2(avgTemp),
		MaxTemperature: round2(maxTemp),
		MinTemperature: round2(minTemp),
		AvgHumidity:    round2(stat.Mean(humidity, nil)),
		TrendData:      buildTrend(observations),
	}, nil
}

// buildTrend returns the last TrendSize observations, oldest first.
func buildTrend(observations []Observation) TrendData {
	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RecordedAt.Equal(sorted[j].RecordedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	if len(sorted) > TrendSize {
		sorted = sorted[len(sorted)-TrendSize:]
	}

	trend := make(TrendData, 0, len(sorted))
	for _, o := range sorted {
		trend = append(trend, TrendPoint{
			Timestamp:   o.RecordedAt,
			Temperature: o.Temperature,
			Humidity:    o.Humidity,
		})
	}
	return trend
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clamp absorbs floating point drift so a mean never leaves [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
