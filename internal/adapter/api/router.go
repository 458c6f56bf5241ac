package api

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loantrack-core/internal/observability"
)

func SetupRouter(app *fiber.App, handler *Handler, metrics *observability.Metrics) {
	// Middleware
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"version": os.Getenv("APP_VERSION"),
			"env":     os.Getenv("ENV"),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// API Versioning
	v1 := app.Group("/v1")
	// Endpoints
	v1.Post("/parse", handler.HandleParse)
	// Wrong-method calls still answer in the ParsedCommand shape.
	v1.All("/parse", func(c *fiber.Ctx) error {
		return parseFailure(c, fiber.StatusMethodNotAllowed, "method not allowed: use POST")
	})
	v1.Post("/actions", handler.HandleAction)
	v1.Get("/chat/:session", handler.HandleHistory)
}
