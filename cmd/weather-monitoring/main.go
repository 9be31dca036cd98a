package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-monitoring/internal/api/http"
	"github.com/i474232898/weather-monitoring/internal/cache"
	"github.com/i474232898/weather-monitoring/internal/config"
	"github.com/i474232898/weather-monitoring/internal/logging"
	"github.com/i474232898/weather-monitoring/internal/scheduler"
	"github.com/i474232898/weather-monitoring/internal/store"
	"github.com/i474232898/weather-monitoring/internal/weather"
	"github.com/i474232898/weather-monitoring/internal/weather/providers"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Errorw("weather monitoring service stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting weather monitoring service", "app", cfg.AppName, "city", cfg.CityName, "provider", cfg.Provider)

	st, err := store.Open(ctx, cfg.DatabaseURL, store.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		OpTimeout:    cfg.DBOpTimeout,
	}, logging.Named(log, "store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnw("closing store", "error", err)
		}
		log.Info("store closed")
	}()

	var summaryCache weather.SummaryCache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisSummaryCache(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), cfg.SummaryCacheTTL)
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			log.Warnw("redis unreachable; summaries will be served from the store", "addr", cfg.RedisAddr, "error", err)
		} else {
			summaryCache = rc
			log.Infow("summary cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.SummaryCacheTTL)
		}
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var source weather.Source
	switch cfg.Provider {
	case config.ProviderWeatherAPI:
		source = providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL, cfg.HTTPTimeout)
	default:
		source = providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.HTTPTimeout)
	}

	service := weather.NewService(source, st, logging.Named(log, "service"))
	summaries := weather.NewSummaryEngine(st, summaryCache, logging.Named(log, "summary"))
	alerts := weather.NewAlertEngine(st, logging.Named(log, "alerts"))

	sched := scheduler.New(scheduler.Config{
		City:           cfg.CityName,
		Ingester:       service,
		Summarizer:     summaries,
		AlertEvaluator: alerts,
		Retainer:       service,
		SummaryWindow:  cfg.SummaryWindow,
		RetentionDays:  cfg.RetentionDays,
		Thresholds:     weather.DefaultThresholds(),
	}, logging.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	app := httpapi.NewApp(cfg.AppName, strings.Join(cfg.CORSAllowOrigins, ","), logging.Named(log, "http"))
	app.Use(logger.New())
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:       service,
		Summaries:     summaries,
		Alerts:        alerts,
		Health:        st,
		City:          cfg.CityName,
		AppName:       cfg.AppName,
		Version:       version,
		SummaryWindow: cfg.SummaryWindow,
		CleanupDays:   cfg.RetentionDays,
		Log:           logging.Named(log, "http"),
	})

	listenErr := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "port", cfg.Port)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-listenErr:
		log.Errorw("fiber server stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warnw("error during http shutdown", "error", err)
	}
	// The scheduler must be fully stopped before the deferred store Close runs.
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warnw("error during scheduler shutdown", "error", err)
	}
	return nil
}
