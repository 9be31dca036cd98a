package weather

import (
	"context"
	"time"
)

// Source abstracts a weather data provider (e.g. OpenWeatherMap, WeatherAPI).
// Implementations make exactly one outbound request per call and never retry.
type Source interface {
	Name() string
	Fetch(ctx context.Context, city string) (RawObservation, error)
}

// ObservationStore persists observations. Every read excludes soft-deleted rows.
type ObservationStore interface {
	SaveObservation(ctx context.Context, obs Observation) (Observation, error)
	// LatestObservations returns up to limit rows, newest first.
	LatestObservations(ctx context.Context, city string, limit int) ([]Observation, error)
	// ObservationsSince returns rows recorded at or after since, in no particular order.
	ObservationsSince(ctx context.Context, city string, since time.Time) ([]Observation, error)
	// CleanupObservations soft- or hard-deletes rows recorded before cutoff and
	// returns how many rows were affected.
	CleanupObservations(ctx context.Context, cutoff time.Time, hard bool) (int64, error)
}

// SummaryStore persists summary snapshots. Summaries are append-only.
type SummaryStore interface {
	SaveSummary(ctx context.Context, s Summary) (Summary, error)
	LatestSummary(ctx context.Context, city string) (Summary, error)
}

// AlertStore persists alerts.
type AlertStore interface {
	// SaveAlerts inserts the whole batch in one transaction.
	SaveAlerts(ctx context.Context, alerts []Alert) ([]Alert, error)
	RecentAlerts(ctx context.Context, city string, limit int) ([]Alert, error)
	AcknowledgeAlert(ctx context.Context, id int64) (Alert, error)
}

// Store is the contract the SQL and in-memory stores satisfy.
type Store interface {
	ObservationStore
	SummaryStore
	AlertStore
	Ping(ctx context.Context) error
	Close() error
}

// SummaryCache is an optional read-through cache for the latest summary per city.
type SummaryCache interface {
	GetSummary(ctx context.Context, city string) (Summary, bool, error)
	SetSummary(ctx context.Context, s Summary) error
}
