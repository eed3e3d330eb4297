package handler_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/intervu-dev/intervu-go-api/internal/dto"
	"github.com/intervu-dev/intervu-go-api/internal/handler"
	"github.com/intervu-dev/intervu-go-api/internal/repository"
	"github.com/intervu-dev/intervu-go-api/internal/service"
	"github.com/intervu-dev/intervu-go-api/pkg/ai"
)

// newReportApp wires the interview and report handlers over one shared
// repository so tests can drive a full session and then fetch its report.
func newReportApp(t *testing.T, completer ai.Completer) *fiber.App {
	t.Helper()

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	repo := repository.NewMemoryRepository()
	events := service.NewEventPublisher(nil, logger)

	interviews := service.NewInterviewService(repo, completer, events, validate,
		service.InterviewOptions{MaxTurns: 5, ProviderTimeout: time.Second}, logger)
	reports := service.NewReportService(repo, nil, time.Minute, logger)

	app := fiber.New()
	group := app.Group("/session")
	handler.NewInterviewHandler(interviews, validate, false, logger).Register(group)
	handler.NewReportHandler(reports, logger).Register(group)
	return app
}

func getReport(t *testing.T, app *fiber.App, sessionID string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/session/%s/report", sessionID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestReportHandler_FullSession(t *testing.T) {
	finalReply := `{"feedback_bullets":["ok"],"scores":{"content":80,"structure":60,"communication":70},"next_question":null}`
	app := newReportApp(t, &fixedCompleter{reply: finalReply})

	started := startSession(t, app, "Junior Developer")
	resp := postAnswer(t, app, fmt.Sprintf(`{"session_id":%q,"answer_text":"my answer"}`, started.SessionID))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = getReport(t, app, started.SessionID.String())
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report dto.FinalReportResponse
	decodeResponse(t, resp, &report)
	require.Equal(t, started.SessionID, report.SessionID)
	require.Equal(t, "Junior Developer", report.RoleProfile)
	require.InDelta(t, 80.0, report.Metrics.AvgContent, 0.001)
	require.InDelta(t, 60.0, report.Metrics.AvgStructure, 0.001)
	require.InDelta(t, 70.0, report.Metrics.AvgCommunication, 0.001)
	require.InDelta(t, 70.0, report.Metrics.OverallAvg, 0.001)
	require.Contains(t, report.FinalSummary, "strongest area was content")
	require.Contains(t, report.FinalSummary, "structure has the most room")
}

func TestReportHandler_InvalidIdentifier(t *testing.T) {
	app := newReportApp(t, &fixedCompleter{})

	resp := getReport(t, app, "not-a-uuid")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReportHandler_UnknownSession(t *testing.T) {
	app := newReportApp(t, &fixedCompleter{})

	resp := getReport(t, app, "a2b2e1a0-3c55-4f88-9a0e-0d8f6b7f1c11")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestReportHandler_SessionWithoutScores(t *testing.T) {
	app := newReportApp(t, &fixedCompleter{})

	started := startSession(t, app, "")
	resp := getReport(t, app, started.SessionID.String())
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
