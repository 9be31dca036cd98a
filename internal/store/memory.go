package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-monitoring/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// Each method holds the lock for its whole body, which gives it the same
// all-or-nothing behaviour as a transaction in the SQL store.
type MemoryStore struct {
	mu sync.RWMutex

	observations []weather.Observation
	summaries    []weather.Summary
	alerts       []weather.Alert

	nextObservationID int64
	nextSummaryID     int64
	nextAlertID       int64

	clock *clock
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{clock: newClock(o.now)}
}

// SaveObservation appends a new observation and assigns its id and timestamp.
func (s *MemoryStore) SaveObservation(_ context.Context, obs weather.Observation) (weather.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObservationID++
	obs.ID = s.nextObservationID
	obs.RecordedAt = s.clock.next()
	obs.IsDeleted = false

	s.observations = append(s.observations, obs)
	return obs, nil
}

// LatestObservations returns up to limit non-deleted observations, newest first.
func (s *MemoryStore) LatestObservations(_ context.Context, city string, limit int) ([]weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []weather.Observation{}
	// Insertion order is recorded_at order, so walking backwards is newest first.
	for i := len(s.observations) - 1; i >= 0 && len(result) < limit; i-- {
		o := s.observations[i]
		if o.City == city && !o.IsDeleted {
			result = append(result, o)
		}
	}
	return result, nil
}

// ObservationsSince returns all non-deleted observations recorded at or after since.
func (s *MemoryStore) ObservationsSince(_ context.Context, city string, since time.Time) ([]weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []weather.Observation{}
	for _, o := range s.observations {
		if o.City == city && !o.IsDeleted && !o.RecordedAt.Before(since) {
			result = append(result, o)
		}
	}
	return result, nil
}

// CleanupObservations flags (soft) or drops (hard) observations recorded before cutoff.
func (s *MemoryStore) CleanupObservations(_ context.Context, cutoff time.Time, hard bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if hard {
		kept := s.observations[:0]
		for _, o := range s.observations {
			if o.RecordedAt.Before(cutoff) {
				n++
				continue
			}
			kept = append(kept, o)
		}
		s.observations = kept
		return n, nil
	}

	for i := range s.observations {
		if s.observations[i].RecordedAt.Before(cutoff) && !s.observations[i].IsDeleted {
			s.observations[i].IsDeleted = true
			n++
		}
	}
	return n, nil
}

// SaveSummary appends a new summary snapshot.
func (s *MemoryStore) SaveSummary(_ context.Context, summary weather.Summary) (weather.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSummaryID++
	summary.ID = s.nextSummaryID
	summary.ComputedAt = s.clock.next()
	if summary.TrendData == nil {
		summary.TrendData = weather.TrendData{}
	}

	s.summaries = append(s.summaries, summary)
	return summary, nil
}

// LatestSummary returns the most recently computed summary for city.
func (s *MemoryStore) LatestSummary(_ context.Context, city string) (weather.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.summaries) - 1; i >= 0; i-- {
		if s.summaries[i].City == city {
			return s.summaries[i], nil
		}
	}
	return weather.Summary{}, weather.ErrNotFound
}

// SaveAlerts appends the whole batch under one lock.
func (s *MemoryStore) SaveAlerts(_ context.Context, alerts []weather.Alert) ([]weather.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make([]weather.Alert, 0, len(alerts))
	for _, a := range alerts {
		s.nextAlertID++
		a.ID = s.nextAlertID
		a.CreatedAt = s.clock.next()
		a.IsSent = false
		saved = append(saved, a)
	}
	s.alerts = append(s.alerts, saved...)
	return saved, nil
}

// RecentAlerts returns up to limit alerts for city, newest first. A limit
// of zero or less yields no alerts.
func (s *MemoryStore) RecentAlerts(_ context.Context, city string, limit int) ([]weather.Alert, error) {
	result := []weather.Alert{}
	if limit <= 0 {
		return result, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.City == city {
			result = append(result, a)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// AcknowledgeAlert sets is_sent on the alert with the given id.
func (s *MemoryStore) AcknowledgeAlert(_ context.Context, id int64) (weather.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].IsSent = true
			return s.alerts[i], nil
		}
	}
	return weather.Alert{}, weather.ErrNotFound
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
