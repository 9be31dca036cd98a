package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS weather_data (
  id BIGSERIAL PRIMARY KEY,
  city TEXT NOT NULL,
  temperature DOUBLE PRECISION NOT NULL,
  feels_like DOUBLE PRECISION NOT NULL,
  temp_min DOUBLE PRECISION NOT NULL,
  temp_max DOUBLE PRECISION NOT NULL,
  humidity INTEGER NOT NULL,
  pressure INTEGER NOT NULL,
  weather_main TEXT NOT NULL,
  weather_description TEXT NOT NULL,
  wind_speed DOUBLE PRECISION NOT NULL,
  cloud_cover INTEGER NOT NULL,
  recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_weather_data_city_recorded ON weather_data(city, recorded_at);

CREATE TABLE IF NOT EXISTS dashboard_summary (
  id BIGSERIAL PRIMARY KEY,
  city TEXT NOT NULL,
  avg_temperature DOUBLE PRECISION NOT NULL,
  max_temperature DOUBLE PRECISION NOT NULL,
  min_temperature DOUBLE PRECISION NOT NULL,
  avg_humidity DOUBLE PRECISION NOT NULL,
  trend_data JSONB NOT NULL DEFAULT '[]'::jsonb,
  computed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dashboard_summary_city_computed ON dashboard_summary(city, computed_at);

CREATE TABLE IF NOT EXISTS weather_alerts (
  id BIGSERIAL PRIMARY KEY,
  city TEXT NOT NULL,
  alert_type TEXT NOT NULL,
  message TEXT NOT NULL,
  threshold_value DOUBLE PRECISION,
  actual_value DOUBLE PRECISION NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  is_sent BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_weather_alerts_city_created ON weather_alerts(city, created_at);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS weather_data (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  city TEXT NOT NULL,
  temperature REAL NOT NULL,
  feels_like REAL NOT NULL,
  temp_min REAL NOT NULL,
  temp_max REAL NOT NULL,
  humidity INTEGER NOT NULL,
  pressure INTEGER NOT NULL,
  weather_main TEXT NOT NULL,
  weather_description TEXT NOT NULL,
  wind_speed REAL NOT NULL,
  cloud_cover INTEGER NOT NULL,
  recorded_at TIMESTAMP NOT NULL,
  is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_weather_data_city_recorded ON weather_data(city, recorded_at);

CREATE TABLE IF NOT EXISTS dashboard_summary (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  city TEXT NOT NULL,
  avg_temperature REAL NOT NULL,
  max_temperature REAL NOT NULL,
  min_temperature REAL NOT NULL,
  avg_humidity REAL NOT NULL,
  trend_data TEXT NOT NULL DEFAULT '[]',
  computed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dashboard_summary_city_computed ON dashboard_summary(city, computed_at);

CREATE TABLE IF NOT EXISTS weather_alerts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  city TEXT NOT NULL,
  alert_type TEXT NOT NULL,
  message TEXT NOT NULL,
  threshold_value REAL,
  actual_value REAL NOT NULL,
  created_at TIMESTAMP NOT NULL,
  is_sent BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_weather_alerts_city_created ON weather_alerts(city, created_at);
`

// RunMigrations creates the tables if they do not exist yet.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	var schema string
	switch db.DriverName() {
	case driverPostgres:
		schema = postgresSchema
	case driverSQLite:
		schema = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range splitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// splitStatements breaks a schema into single statements; not every driver
// accepts several statements in one Exec.
func splitStatements(schema string) []string {
	var stmts []string
	for _, part := range strings.Split(schema, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
