package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-monitoring/internal/weather"
)

// Task names, also used as gocron tags.
const (
	TaskIngest    = "ingest"
	TaskSummarize = "summarize"
	TaskAlert     = "alert-check"
	TaskRetention = "retention"
)

// ErrStopped is returned by RunNow once Stop has been called.
var ErrStopped = errors.New("scheduler stopped")

type Ingester interface {
	FetchAndStore(ctx context.Context, city string) (weather.Observation, error)
}

type Summarizer interface {
	Compute(ctx context.Context, city string, window time.Duration) (weather.Summary, error)
}

type AlertEvaluator interface {
	Evaluate(ctx context.Context, city string, th weather.Thresholds) ([]weather.Alert, error)
}

type Retainer interface {
	Cleanup(ctx context.Context, days int, hard bool) (int64, error)
}

// Config wires the scheduled tasks to the components they drive.
type Config struct {
	City           string
	Ingester       Ingester
	Summarizer     Summarizer
	AlertEvaluator AlertEvaluator
	Retainer       Retainer

	SummaryWindow time.Duration
	RetentionDays int
	Thresholds    weather.Thresholds
}

type task struct {
	name string
	cron string
	run  func(ctx context.Context) error
}

// Scheduler runs the ingest, summarize, alert-check and retention tasks on
// their own cron cadences. Tasks are independent: a failed run is logged and
// the next one fires on schedule as usual.
type Scheduler struct {
	cron  *gocron.Scheduler
	log   *zap.SugaredLogger
	tasks []task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// New creates a new Scheduler. Nothing runs until Start is called.
func New(cfg Config, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.SummaryWindow <= 0 {
		cfg.SummaryWindow = weather.DefaultSummaryWindow
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	s.tasks = []task{
		{
			name: TaskIngest,
			cron: "*/30 * * * *",
			run: func(ctx context.Context) error {
				obs, err := cfg.Ingester.FetchAndStore(ctx, cfg.City)
				if err != nil {
					return err
				}
				s.log.Infow("scheduler: observation stored", "id", obs.ID, "temperature", obs.Temperature)
				return nil
			},
		},
		{
			name: TaskSummarize,
			cron: "0 * * * *",
			run: func(ctx context.Context) error {
				summary, err := cfg.Summarizer.Compute(ctx, cfg.City, cfg.SummaryWindow)
				if err != nil {
					return err
				}
				s.log.Infow("scheduler: summary computed", "id", summary.ID, "avg_temperature", summary.AvgTemperature)
				return nil
			},
		},
		{
			name: TaskAlert,
			cron: "*/15 * * * *",
			run: func(ctx context.Context) error {
				alerts, err := cfg.AlertEvaluator.Evaluate(ctx, cfg.City, cfg.Thresholds)
				if err != nil {
					return err
				}
				s.log.Infow("scheduler: alert check finished", "alerts", len(alerts))
				return nil
			},
		},
		{
			name: TaskRetention,
			cron: "0 0 * * *",
			run: func(ctx context.Context) error {
				n, err := cfg.Retainer.Cleanup(ctx, cfg.RetentionDays, false)
				if err != nil {
					return err
				}
				s.log.Infow("scheduler: retention finished", "soft_deleted", n)
				return nil
			},
		},
	}
	return s
}

// Start registers every task with gocron and starts the scheduler.
func (s *Scheduler) Start() error {
	s.cron.WaitForScheduleAll()

	for _, t := range s.tasks {
		name := t.name
		_, err := s.cron.Cron(t.cron).Tag(name).SingletonMode().Do(func() {
			_ = s.run(name)
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
		s.log.Infow("scheduler: task registered", "task", name, "cron", t.cron)
	}

	s.cron.StartAsync()
	return nil
}

// RunNow runs the named task synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	return s.run(name)
}

func (s *Scheduler) run(name string) error {
	t, ok := s.lookup(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	runID := uuid.NewString()
	log := s.log.With("task", name, "run_id", runID)
	start := time.Now()
	log.Infow("scheduler: task started")

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	err := t.run(ctx)
	switch {
	case err == nil:
		log.Infow("scheduler: task completed", "duration", time.Since(start))
	case errors.Is(err, weather.ErrNoData):
		log.Infow("scheduler: nothing to do", "reason", err.Error())
	default:
		log.Errorw("scheduler: task failed; skipping this cycle", "error", err, "duration", time.Since(start))
	}
	return err
}

func (s *Scheduler) lookup(name string) (task, bool) {
	for _, t := range s.tasks {
		if t.name == name {
			return t, true
		}
	}
	return task{}, false
}

// Stop refuses new runs, stops the cron loop and waits for in-flight runs.
// When ctx expires first, in-flight runs are cancelled and Stop waits for
// them to return. After Stop returns no task touches the store.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	// gocron's Stop blocks until singleton jobs return, so it must not run
	// ahead of the deadline check.
	done := make(chan struct{})
	go func() {
		s.cron.Stop()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.log.Info("scheduler: stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler: shutdown deadline reached; cancelling running tasks")
		s.cancel()
		<-done
		return fmt.Errorf("scheduler: in-flight tasks cancelled: %w", ctx.Err())
	}
}
