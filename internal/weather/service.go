package weather

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultLatestLimit is how many observations Latest returns by default.
const DefaultLatestLimit = 10

// Service orchestrates fetching from the provider and persisting observations.
type Service struct {
	source Source
	store  ObservationStore
	log    *zap.SugaredLogger
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(source Source, store ObservationStore, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		source: source,
		store:  store,
		log:    log,
		now:    time.Now,
	}
}

// FetchAndStore fetches one observation for city and saves it.
func (s *Service) FetchAndStore(ctx context.Context, city string) (Observation, error) {
	if s.source == nil {
		return Observation{}, fmt.Errorf("%w: no weather provider configured", ErrSourceUnavailable)
	}

	raw, err := s.source.Fetch(ctx, city)
	if err != nil {
		s.log.Errorw("weather fetch failed", "provider", s.source.Name(), "city", city, "error", err)
		return Observation{}, err
	}
	if raw.City == "" {
		raw.City = city
	}

	saved, err := s.store.SaveObservation(ctx, NewObservation(raw))
	if err != nil {
		s.log.Errorw("saving weather data failed", "city", city, "error", err)
		return Observation{}, err
	}

	s.log.Infow("weather data saved",
		"id", saved.ID,
		"city", saved.City,
		"temperature", saved.Temperature,
		"weather", saved.WeatherMain,
	)
	return saved, nil
}

// Latest returns up to limit non-deleted observations for city, newest first.
func (s *Service) Latest(ctx context.Context, city string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	return s.store.LatestObservations(ctx, city, limit)
}

// Cleanup retires observations older than the given number of days, either
// flagging them deleted (soft) or removing them (hard).
func (s *Service) Cleanup(ctx context.Context, days int, hard bool) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must not be negative")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	n, err := s.store.CleanupObservations(ctx, cutoff, hard)
	if err != nil {
		s.log.Errorw("data cleanup failed", "cutoff", cutoff, "hard", hard, "error", err)
		return 0, err
	}
	s.log.Infow("cleaned up weather records", "count", n, "cutoff", cutoff, "hard", hard)
	return n, nil
}
