package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/intervu-dev/intervu-go-api/internal/service"
	"github.com/intervu-dev/intervu-go-api/internal/utils"
)

// ReportHandler wires the final report HTTP route.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches the report endpoint to the router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/:session_id/report", h.get)
}

func (h *ReportHandler) get(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("session_id"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session identifier")
	}

	report, err := h.service.Get(c.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrNoScores):
			return utils.SendError(c, fiber.StatusNotFound, "no scores found for this session")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(report)
}
