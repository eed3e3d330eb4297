package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/intervu-dev/intervu-go-api/internal/config"
	"github.com/intervu-dev/intervu-go-api/internal/handler"
	"github.com/intervu-dev/intervu-go-api/internal/middleware"
	"github.com/intervu-dev/intervu-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	InterviewHandler *handler.InterviewHandler
	ReportHandler    *handler.ReportHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Answer turns fan out to the completion provider, so the whole group
	// is rate limited per client.
	session := app.Group("/session", middleware.RateLimit("session", 30, time.Minute))

	if deps.InterviewHandler != nil {
		deps.InterviewHandler.Register(session)
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(session)
	}
}
