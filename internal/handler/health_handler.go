package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/intervu-dev/intervu-go-api/internal/config"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Message string `json:"message"`
}

// HealthCheck returns a handler that reports the service is up.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{
			Message: fmt.Sprintf("%s is running", cfg.AppName),
		})
	}
}
