package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenWeather = "openweather"
	ProviderWeatherAPI  = "weatherapi"
)

const defaultCORSOrigins = "http://localhost:3000,http://localhost:5173"

var validate = validator.New()

type AppConfig struct {
	AppName string `validate:"required"`
	Debug   bool
	Port    string `validate:"required,numeric"`

	// DatabaseURL selects the store: postgres://, sqlite:// or memory://.
	DatabaseURL    string        `validate:"required"`
	DBMaxOpenConns int           `validate:"gte=1"`
	DBMaxIdleConns int           `validate:"gte=0"`
	DBOpTimeout    time.Duration `validate:"gt=0"`

	// CityName is the city every scheduled task and default request targets.
	CityName string `validate:"required,max=100"`

	Provider           string        `validate:"oneof=openweather weatherapi"`
	OpenWeatherAPIKey  string        `validate:"required_if=Provider openweather"`
	OpenWeatherBaseURL string        `validate:"omitempty,url"`
	WeatherAPIKey      string        `validate:"required_if=Provider weatherapi"`
	WeatherAPIBaseURL  string        `validate:"omitempty,url"`
	HTTPTimeout        time.Duration `validate:"gt=0"`

	// Redis is optional; an empty RedisAddr disables the summary cache.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int           `validate:"gte=0"`
	SummaryCacheTTL time.Duration `validate:"gt=0"`

	SummaryWindow   time.Duration `validate:"gt=0"`
	RetentionDays   int           `validate:"gte=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	// CORSAllowOrigins are the browser origins allowed to call the API with
	// credentials. Wildcards are rejected.
	CORSAllowOrigins []string `validate:"required,dive,url"`
}

// Load reads configuration from the environment (and a .env file when
// present), applies defaults and validates the result.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		AppName:            getenvDefault("APP_NAME", "Weather Monitoring Service"),
		Port:               getenvDefault("PORT", "8000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CityName:           strings.TrimSpace(os.Getenv("CITY_NAME")),
		Provider:           strings.ToLower(getenvDefault("WEATHER_PROVIDER", ProviderOpenWeather)),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: os.Getenv("OPENWEATHER_BASE_URL"),
		WeatherAPIKey:      os.Getenv("WEATHERAPI_API_KEY"),
		WeatherAPIBaseURL:  os.Getenv("WEATHERAPI_BASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		CORSAllowOrigins:   splitList(getenvDefault("CORS_ALLOW_ORIGINS", defaultCORSOrigins)),
	}

	var err error
	if cfg.Debug, err = getenvBool("DEBUG", false); err != nil {
		return nil, err
	}

	if cfg.DBMaxOpenConns, err = getenvInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getenvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	// Scheduled retention: soft-delete observations older than this many days.
	if cfg.RetentionDays, err = getenvInt("RETENTION_DAYS", 2); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"DB_OP_TIMEOUT", "30s", &cfg.DBOpTimeout},
		{"SUMMARY_CACHE_TTL", "10m", &cfg.SummaryCacheTTL},
		{"SUMMARY_WINDOW", "24h", &cfg.SummaryWindow},
		{"SHUTDOWN_TIMEOUT", "15s", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// APIKey returns the key for the selected provider.
func (c *AppConfig) APIKey() string {
	if c.Provider == ProviderWeatherAPI {
		return c.WeatherAPIKey
	}
	return c.OpenWeatherAPIKey
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
