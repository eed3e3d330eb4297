package handler

import (
	"bufio"
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/intervu-dev/intervu-go-api/internal/dto"
	"github.com/intervu-dev/intervu-go-api/internal/middleware"
	"github.com/intervu-dev/intervu-go-api/internal/service"
	"github.com/intervu-dev/intervu-go-api/internal/utils"
)

// InterviewHandler wires the session start/answer HTTP routes.
type InterviewHandler struct {
	service   service.InterviewService
	validator *validator.Validate
	logger    zerolog.Logger
	streaming bool
}

// NewInterviewHandler constructs the handler. streaming selects whether
// answers are delivered as chunked text or as a single JSON payload.
func NewInterviewHandler(service service.InterviewService, validator *validator.Validate, streaming bool, logger zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "interview_handler").Logger(),
		streaming: streaming,
	}
}

// Register attaches interview endpoints to the router group.
func (h *InterviewHandler) Register(router fiber.Router) {
	router.Post("/start", h.start)
	router.Post("/answer", h.answer)
}

func (h *InterviewHandler) start(c *fiber.Ctx) error {
	payload := dto.StartSessionRequest{}
	// A missing or empty body is fine; the default role profile applies.
	_ = c.BodyParser(&payload)

	response, err := h.service.Start(c.Context(), payload)
	if err != nil {
		return h.internalError(c, err)
	}

	return c.JSON(response)
}

func (h *InterviewHandler) answer(c *fiber.Ctx) error {
	payload := dto.AnswerRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if h.streaming {
		return h.answerStream(c, payload)
	}
	return h.answerBlocking(c, payload)
}

func (h *InterviewHandler) answerBlocking(c *fiber.Ctx, payload dto.AnswerRequest) error {
	response, err := h.service.Answer(c.Context(), payload)
	if err != nil {
		return h.handleAnswerError(c, err)
	}

	return c.JSON(response)
}

// answerStream runs session lookup and answer attachment before the first
// byte of the body, so unknown sessions and closed interviews still get
// proper HTTP status codes; once the stream is open, provider faults only
// ever surface as an error-prefixed text chunk.
func (h *InterviewHandler) answerStream(c *fiber.Ctx, payload dto.AnswerRequest) error {
	pending, err := h.service.BeginAnswer(c.Context(), payload)
	if err != nil {
		return h.handleAnswerError(c, err)
	}

	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("Cache-Control", "no-cache")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
	ctx, cancel := context.WithCancel(ctx)

	logger := requestLogger(h.logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		emit := func(chunk string) error {
			if _, err := w.WriteString(chunk); err != nil {
				return err
			}
			return w.Flush()
		}

		if err := pending.Stream(ctx, emit); err != nil {
			logger.Error().Err(err).Msg("streamed answer evaluation failed")
		}
	})

	return nil
}

func (h *InterviewHandler) handleAnswerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrNoOpenTurn):
		return utils.SendError(c, fiber.StatusBadRequest, "no open question found")
	case errors.Is(err, service.ErrEmptyAnswer):
		return utils.SendError(c, fiber.StatusBadRequest, "answer text must not be empty")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *InterviewHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
