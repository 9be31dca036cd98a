package weather

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSummaryWindow is the trailing window used when none is configured.
const DefaultSummaryWindow = 24 * time.Hour

type summarySource interface {
	ObservationStore
	SummaryStore
}

// SummaryEngine computes and serves dashboard summaries.
type SummaryEngine struct {
	store summarySource
	cache SummaryCache // optional
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewSummaryEngine creates a new SummaryEngine. cache may be nil.
func NewSummaryEngine(store summarySource, cache SummaryCache, log *zap.SugaredLogger) *SummaryEngine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SummaryEngine{
		store: store,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// Compute summarizes the observations recorded for city within the trailing
// window and persists the result as a new Summary. It returns ErrNoData when
// the window is empty.
func (e *SummaryEngine) Compute(ctx context.Context, city string, window time.Duration) (Summary, error) {
	if window <= 0 {
		window = DefaultSummaryWindow
	}
	since := e.now().UTC().Add(-window)

	observations, err := e.store.ObservationsSince(ctx, city, since)
	if err != nil {
		return Summary{}, err
	}

	summary, err := Summarize(city, observations)
	if err != nil {
		e.log.Warnw("no weather records found for dashboard summary", "city", city, "window", window)
		return Summary{}, err
	}

	saved, err := e.store.SaveSummary(ctx, summary)
	if err != nil {
		return Summary{}, err
	}

	if e.cache != nil {
		if err := e.cache.SetSummary(ctx, saved); err != nil {
			e.log.Warnw("summary cache write failed", "city", city, "error", err)
		}
	}
	return saved, nil
}

// Latest returns the most recently computed summary for city without
// recomputing. It returns ErrNotFound when none exists.
func (e *SummaryEngine) Latest(ctx context.Context, city string) (Summary, error) {
	if e.cache != nil {
		s, ok, err := e.cache.GetSummary(ctx, city)
		switch {
		case err != nil:
			e.log.Warnw("summary cache read failed", "city", city, "error", err)
		case ok:
			return s, nil
		}
	}

	s, err := e.store.LatestSummary(ctx, city)
	if err != nil {
		return Summary{}, err
	}

	if e.cache != nil {
		if err := e.cache.SetSummary(ctx, s); err != nil {
			e.log.Warnw("summary cache write failed", "city", city, "error", err)
		}
	}
	return s, nil
}
