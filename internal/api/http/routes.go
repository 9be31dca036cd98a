package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/i474232898/weather-monitoring/internal/common"
	"github.com/i474232898/weather-monitoring/internal/weather"
)

var validate = validator.New()

const (
	recentLimit        = 10
	defaultCleanupDays = 2
	healthTimeout      = 2 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the HTTP handlers delegate to.
type Deps struct {
	Service   *weather.Service
	Summaries *weather.SummaryEngine
	Alerts    *weather.AlertEngine
	Health    Pinger

	City          string
	AppName       string
	Version       string
	SummaryWindow time.Duration
	CleanupDays   int

	Log *zap.SugaredLogger
}

// NewApp returns a Fiber app with the centralized error handler, panic
// recovery and, when allowOrigins is not empty, CORS for the browser frontend.
// allowOrigins is a comma separated origin list or "*".
func NewApp(appName, allowOrigins string, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          ErrorHandler(log),
	})
	app.Use(recover.New())
	if allowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: allowOrigins,
			// Credentials cannot be combined with a wildcard origin.
			AllowCredentials: allowOrigins != "*",
		}))
	}
	return app
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Errorw("request failed", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.CleanupDays <= 0 {
		d.CleanupDays = defaultCleanupDays
	}
	h := &handlers{d}

	app.Get("/", h.root)
	app.Get("/health", h.health)

	api := app.Group("/api/weather")
	api.Get("/current", h.current)
	api.Get("/dashboard", h.dashboard)
	api.Get("/alerts", h.alerts)
	api.Post("/alerts/:id/ack", h.acknowledge)
	api.Post("/fetch-now", h.fetchNow)
	api.Post("/compute-summary", h.computeSummary)
	api.Post("/trigger-alert-check", h.triggerAlertCheck)
	api.Delete("/cleanup-data", h.cleanup)
}

type handlers struct {
	Deps
}

func (h *handlers) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": h.AppName + " API",
		"status":  "running",
		"version": h.Version,
	})
}

func (h *handlers) health(c *fiber.Ctx) error {
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := h.Health.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *handlers) current(c *fiber.Ctx) error {
	city, err := h.city(c)
	if err != nil {
		return err
	}

	observations, err := h.Service.Latest(c.UserContext(), city, recentLimit)
	if err != nil {
		return failure(err, "failed to fetch current weather")
	}
	if len(observations) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "No weather data found")
	}
	return c.JSON(observations)
}

// dashboard serves the latest summary and computes one when none exists yet.
func (h *handlers) dashboard(c *fiber.Ctx) error {
	city, err := h.city(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	summary, err := h.Summaries.Latest(ctx, city)
	if errors.Is(err, weather.ErrNotFound) {
		h.Log.Infow("no dashboard summary found, computing a new one", "city", city)
		summary, err = h.Summaries.Compute(ctx, city, h.SummaryWindow)
	}
	if err != nil {
		if errors.Is(err, weather.ErrNoData) {
			return fiber.NewError(fiber.StatusNotFound,
				"No weather data available to create summary. Please fetch weather data first.")
		}
		return failure(err, "failed to fetch dashboard summary")
	}
	return c.JSON(summary)
}

func (h *handlers) alerts(c *fiber.Ctx) error {
	city, err := h.city(c)
	if err != nil {
		return err
	}

	alerts, err := h.Alerts.Recent(c.UserContext(), city, recentLimit)
	if err != nil {
		return failure(err, "failed to fetch alerts")
	}
	return c.JSON(alerts)
}

type ackParams struct {
	ID int64 `validate:"gt=0"`
}

func (h *handlers) acknowledge(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "alert id must be an integer")
	}
	p := ackParams{ID: int64(id)}
	if err := validate.Struct(p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	alert, err := h.Alerts.Acknowledge(c.UserContext(), p.ID)
	if err != nil {
		return failure(err, "failed to acknowledge alert")
	}
	return c.JSON(alert)
}

func (h *handlers) fetchNow(c *fiber.Ctx) error {
	city, err := h.city(c)
	if err != nil {
		return err
	}

	h.Log.Infow("manual weather fetch triggered", "city", city)
	saved, err := h.Service.FetchAndStore(c.UserContext(), city)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to fetch weather data: %v", err))
	}

	return c.JSON(fiber.Map{
		"message": "Weather data fetched successfully",
		"data": fiber.Map{
			"id":          saved.ID,
			"city":        saved.City,
			"temperature": saved.Temperature,
			"humidity":    saved.Humidity,
			"weather":     saved.WeatherMain,
			"recorded_at": saved.RecordedAt,
		},
	})
}

func (h *handlers) computeSummary(c *fiber.Ctx) error {
	city, err := h.city(c)
	if err != nil {
		return err
	}

	h.Log.Infow("manual dashboard summary computation triggered", "city", city)
	summary, err := h.Summaries.Compute(c.UserContext(), city, h.SummaryWindow)
	if err != nil {
		if errors.Is(err, weather.ErrNoData) {
			return fiber.NewError(fiber.StatusNotFound, "No weather data available. Please fetch weather data first.")
		}
		return failure(err, "Failed to compute summary")
	}

	return c.JSON(fiber.Map{
		"message": "Dashboard summary computed successfully",
		"data": fiber.Map{
			"id":              summary.ID,
			"city":            summary.City,
			"avg_temperature": summary.AvgTemperature,
			"max_temperature": summary.MaxTemperature,
			"min_temperature": summary.MinTemperature,
			"avg_humidity":    summary.AvgHumidity,
			"computed_at":     summary.ComputedAt,
		},
	})
}

func (h *handlers) triggerAlertCheck(c *fiber.Ctx) error {
	city, err := h.city(c)
	if err != nil {
		return err
	}

	h.Log.Infow("manual alert check triggered", "city", city)
	alerts, err := h.Alerts.Evaluate(c.UserContext(), city, weather.DefaultThresholds())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to check alerts: %v", err))
	}

	items := make([]fiber.Map, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, fiber.Map{
			"id":         a.ID,
			"type":       a.AlertType,
			"message":    a.Message,
			"created_at": a.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{
		"message":      fmt.Sprintf("Alert check completed. %d alerts created.", len(alerts)),
		"alerts_count": len(alerts),
		"alerts":       items,
	})
}

type cleanupQuery struct {
	Days       int  `query:"days" validate:"gte=0"`
	HardDelete bool `query:"hard_delete"`
}

func (h *handlers) cleanup(c *fiber.Ctx) error {
	q := cleanupQuery{Days: h.CleanupDays}
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	h.Log.Infow("manual data cleanup triggered", "days", q.Days, "hard_delete", q.HardDelete)
	n, err := h.Service.Cleanup(c.UserContext(), q.Days, q.HardDelete)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to cleanup data: %v", err))
	}

	cleanupType := "soft_delete"
	if q.HardDelete {
		cleanupType = "hard_delete"
	}
	return c.JSON(fiber.Map{
		"message":       "Data cleanup completed successfully",
		"deleted_count": n,
		"cleanup_type":  cleanupType,
	})
}

type cityQuery struct {
	City string `query:"city" validate:"omitempty,max=100"`
}

// city returns the ?city= override, or the configured city.
func (h *handlers) city(c *fiber.Ctx) (string, error) {
	var q cityQuery
	if err := c.QueryParser(&q); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return common.CityOrDefault(q.City, h.City), nil
}

// failure maps NotFound and NoData to 404 and everything else to 500,
// keeping the cause in the message.
func failure(err error, msg string) error {
	code := fiber.StatusInternalServerError
	if errors.Is(err, weather.ErrNotFound) || errors.Is(err, weather.ErrNoData) {
		code = fiber.StatusNotFound
	}
	return fiber.NewError(code, fmt.Sprintf("%s: %v", msg, err))
}
