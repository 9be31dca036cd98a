package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/i474232898/weather-monitoring/internal/weather"
)

const observationColumns = `id, city, temperature, feels_like, temp_min, temp_max, humidity, pressure,
weather_main, weather_description, wind_speed, cloud_cover, recorded_at, is_deleted`

const summaryColumns = `id, city, avg_temperature, max_temperature, min_temperature, avg_humidity,
trend_data, computed_at`

const alertColumns = `id, city, alert_type, message, threshold_value, actual_value, created_at, is_sent`

// SQLStore implements weather.Store on top of a pooled sqlx connection.
// Writes run in a single transaction each; queries are written with '?'
// placeholders and rebound for the driver in use.
type SQLStore struct {
	db        *sqlx.DB
	clock     *clock
	opTimeout time.Duration
}

// NewSQLStore wraps an open database. opTimeout bounds every operation,
// including the wait for a free pooled connection; zero means no bound.
func NewSQLStore(db *sqlx.DB, opTimeout time.Duration, opts ...Option) *SQLStore {
	o := buildOptions(opts)
	return &SQLStore{
		db:        db,
		clock:     newClock(o.now),
		opTimeout: opTimeout,
	}
}

func (s *SQLStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", weather.ErrPersistence, op, err)
}

// inTx runs fn in a transaction, rolling back on any error. ErrNotFound is
// passed through unwrapped; everything else becomes ErrPersistence.
func (s *SQLStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceError(op+": begin", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, weather.ErrNotFound) {
			return err
		}
		return persistenceError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceError(op+": commit", err)
	}
	return nil
}

// SaveObservation inserts one observation and returns it with its id and
// recorded_at filled in.
func (s *SQLStore) SaveObservation(ctx context.Context, obs weather.Observation) (weather.Observation, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.db.Rebind(`
INSERT INTO weather_data (
  city, temperature, feels_like, temp_min, temp_max, humidity, pressure,
  weather_main, weather_description, wind_speed, cloud_cover, recorded_at, is_deleted
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)

	err := s.inTx(ctx, "insert observation", func(tx *sqlx.Tx) error {
		obs.RecordedAt = s.clock.next()
		obs.IsDeleted = false
		return tx.QueryRowxContext(ctx, query,
			obs.City,
			obs.Temperature,
			obs.FeelsLike,
			obs.TempMin,
			obs.TempMax,
			obs.Humidity,
			obs.Pressure,
			obs.WeatherMain,
			obs.WeatherDescription,
			obs.WindSpeed,
			obs.CloudCover,
			obs.RecordedAt,
			obs.IsDeleted,
		).Scan(&obs.ID)
	})
	if err != nil {
		return weather.Observation{}, err
	}
	return obs, nil
}

// LatestObservations returns up to limit non-deleted observations, newest first.
func (s *SQLStore) LatestObservations(ctx context.Context, city string, limit int) ([]weather.Observation, error) {
	rows := []weather.Observation{}
	// SQLite reads a negative LIMIT as no limit at all.
	if limit <= 0 {
		return rows, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.db.Rebind(`
SELECT ` + observationColumns + `
FROM weather_data
WHERE city = ? AND is_deleted = FALSE
ORDER BY recorded_at DESC, id DESC
LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, city, limit); err != nil {
		return nil, persistenceError("select latest observations", err)
	}
	normalizeObservations(rows)
	return rows, nil
}

// ObservationsSince returns non-deleted observations recorded at or after since.
func (s *SQLStore) ObservationsSince(ctx context.Context, city string, since time.Time) ([]weather.Observation, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows := []weather.Observation{}
	query := s.db.Rebind(`
SELECT ` + observationColumns + `
FROM weather_data
WHERE city = ? AND is_deleted = FALSE AND recorded_at >= ?`)
	if err := s.db.SelectContext(ctx, &rows, query, city, since.UTC()); err != nil {
		return nil, persistenceError("select windowed observations", err)
	}
	normalizeObservations(rows)
	return rows, nil
}

// CleanupObservations deletes (hard) or flags (soft) rows recorded before cutoff.
func (s *SQLStore) CleanupObservations(ctx context.Context, cutoff time.Time, hard bool) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := `UPDATE weather_data SET is_deleted = TRUE WHERE recorded_at < ? AND is_deleted = FALSE`
	if hard {
		query = `DELETE FROM weather_data WHERE recorded_at < ?`
	}
	query = s.db.Rebind(query)

	var n int64
	err := s.inTx(ctx, "cleanup observations", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, cutoff.UTC())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SaveSummary inserts a new summary snapshot.
func (s *SQLStore) SaveSummary(ctx context.Context, summary weather.Summary) (weather.Summary, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if summary.TrendData == nil {
		summary.TrendData = weather.TrendData{}
	}

	query := s.db.Rebind(`
INSERT INTO dashboard_summary (
  city, avg_temperature, max_temperature, min_temperature, avg_humidity, trend_data, computed_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`)

	err := s.inTx(ctx, "insert summary", func(tx *sqlx.Tx) error {
		summary.ComputedAt = s.clock.next()
		return tx.QueryRowxContext(ctx, query,
			summary.City,
			summary.AvgTemperature,
			summary.MaxTemperature,
			summary.MinTemperature,
			summary.AvgHumidity,
			summary.TrendData,
			summary.ComputedAt,
		).Scan(&summary.ID)
	})
	if err != nil {
		return weather.Summary{}, err
	}
	return summary, nil
}

// LatestSummary returns the summary with the latest computed_at for city.
func (s *SQLStore) LatestSummary(ctx context.Context, city string) (weather.Summary, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var summary weather.Summary
	query := s.db.Rebind(`
SELECT ` + summaryColumns + `
FROM dashboard_summary
WHERE city = ?
ORDER BY computed_at DESC, id DESC
LIMIT 1`)
	err := s.db.GetContext(ctx, &summary, query, city)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Summary{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.Summary{}, persistenceError("select latest summary", err)
	}
	summary.ComputedAt = summary.ComputedAt.UTC()
	return summary, nil
}

// SaveAlerts inserts every alert in one transaction; either all rows become
// visible or none do.
func (s *SQLStore) SaveAlerts(ctx context.Context, alerts []weather.Alert) ([]weather.Alert, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.db.Rebind(`
INSERT INTO weather_alerts (
  city, alert_type, message, threshold_value, actual_value, created_at, is_sent
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`)

	saved := make([]weather.Alert, 0, len(alerts))
	err := s.inTx(ctx, "insert alerts", func(tx *sqlx.Tx) error {
		for _, a := range alerts {
			a.CreatedAt = s.clock.next()
			a.IsSent = false
			if err := tx.QueryRowxContext(ctx, query,
				a.City,
				string(a.AlertType),
				a.Message,
				a.ThresholdValue,
				a.ActualValue,
				a.CreatedAt,
				a.IsSent,
			).Scan(&a.ID); err != nil {
				return fmt.Errorf("alert %s: %w", a.AlertType, err)
			}
			saved = append(saved, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// RecentAlerts returns up to limit alerts for city, newest first.
func (s *SQLStore) RecentAlerts(ctx context.Context, city string, limit int) ([]weather.Alert, error) {
	rows := []weather.Alert{}
	if limit <= 0 {
		return rows, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.db.Rebind(`
SELECT ` + alertColumns + `
FROM weather_alerts
WHERE city = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, city, limit); err != nil {
		return nil, persistenceError("select recent alerts", err)
	}
	for i := range rows {
		rows[i].CreatedAt = rows[i].CreatedAt.UTC()
	}
	return rows, nil
}

// AcknowledgeAlert sets is_sent on an alert. Setting it again is harmless.
func (s *SQLStore) AcknowledgeAlert(ctx context.Context, id int64) (weather.Alert, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	selectQuery := s.db.Rebind(`SELECT ` + alertColumns + ` FROM weather_alerts WHERE id = ?`)
	updateQuery := s.db.Rebind(`UPDATE weather_alerts SET is_sent = TRUE WHERE id = ?`)

	var alert weather.Alert
	err := s.inTx(ctx, "acknowledge alert", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &alert, selectQuery, id)
		if errors.Is(err, sql.ErrNoRows) {
			return weather.ErrNotFound
		}
		if err != nil {
			return err
		}
		if alert.IsSent {
			return nil
		}
		if _, err := tx.ExecContext(ctx, updateQuery, id); err != nil {
			return err
		}
		alert.IsSent = true
		return nil
	})
	if err != nil {
		return weather.Alert{}, err
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	return alert, nil
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func normalizeObservations(rows []weather.Observation) {
	for i := range rows {
		rows[i].RecordedAt = rows[i].RecordedAt.UTC()
	}
}
