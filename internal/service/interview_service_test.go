package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/intervu-dev/intervu-go-api/internal/dto"
	"github.com/intervu-dev/intervu-go-api/internal/repository"
	"github.com/intervu-dev/intervu-go-api/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// stubCompleter yields canned provider output. fragments drive the streaming
// path; when nil the whole reply streams as one fragment.
type stubCompleter struct {
	reply     string
	err       error
	fragments []string
	streamErr error
}

func (s *stubCompleter) Complete(_ context.Context, _ ai.Prompt) (string, error) {
	return s.reply, s.err
}

func (s *stubCompleter) CompleteStream(_ context.Context, _ ai.Prompt, onFragment func(string) error) (string, error) {
	fragments := s.fragments
	if fragments == nil {
		fragments = []string{s.reply}
	}

	var accumulated strings.Builder
	for _, fragment := range fragments {
		accumulated.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			return accumulated.String(), err
		}
	}
	return accumulated.String(), s.streamErr
}

const providerJSONReply = `{"feedback_bullets":["Strong impact focus","Good use of metrics"],"scores":{"content":80,"structure":75,"communication":70},"next_question":"Tell me about a setback"}`

func newTestInterviewService(completer ai.Completer, maxTurns int) (InterviewService, repository.InterviewRepository) {
	repo := repository.NewMemoryRepository()
	validate := validator.New(validator.WithRequiredStructEnabled())
	events := NewEventPublisher(nil, testLogger())

	svc := NewInterviewService(repo, completer, events, validate, InterviewOptions{
		DefaultRoleProfile: "Software Engineer",
		MaxTurns:           maxTurns,
		ProviderTimeout:    time.Second,
	}, testLogger())
	return svc, repo
}

func countOpenTurns(t *testing.T, repo repository.InterviewRepository, sessionID uuid.UUID) int {
	t.Helper()

	turns, err := repo.ListTurns(context.Background(), sessionID)
	require.NoError(t, err)

	open := 0
	for _, turn := range turns {
		if !turn.Answered() {
			open++
		}
	}
	return open
}

func TestStartCreatesSessionWithOpenQuestion(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{}, 5)

	resp, err := svc.Start(context.Background(), dto.StartSessionRequest{RoleProfile: "Junior Developer"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, resp.SessionID)
	require.NotEmpty(t, resp.FirstQuestion)
	require.Contains(t, resp.FirstQuestion, "Junior Developer")

	turns, err := repo.ListTurns(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.False(t, turns[0].Answered())
	require.Equal(t, resp.FirstQuestion, turns[0].QText)
}

func TestStartDefaultsEmptyRoleProfile(t *testing.T) {
	svc, _ := newTestInterviewService(&stubCompleter{}, 5)

	resp, err := svc.Start(context.Background(), dto.StartSessionRequest{RoleProfile: "   "})
	require.NoError(t, err)
	require.Contains(t, resp.FirstQuestion, "Software Engineer")
}

func TestAnswerHappyPath(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{reply: providerJSONReply}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{RoleProfile: "Junior Developer"})
	require.NoError(t, err)

	resp, err := svc.Answer(context.Background(), dto.AnswerRequest{
		SessionID:  start.SessionID,
		AnswerText: "I built a caching layer that cut latency 40%",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Strong impact focus", "Good use of metrics"}, resp.Feedback.Bullets)
	require.Equal(t, dto.ScoreCard{Content: 80, Structure: 75, Communication: 70}, resp.Feedback.Scores)
	require.NotNil(t, resp.NextQuestion)
	require.Equal(t, "Tell me about a setback", *resp.NextQuestion)

	require.Equal(t, 1, countOpenTurns(t, repo, start.SessionID))

	scores, err := repo.ListScores(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, 80, scores[0].Content)
	require.Equal(t, 70, scores[0].Comms)
}

func TestAnswerUnknownSession(t *testing.T) {
	svc, _ := newTestInterviewService(&stubCompleter{reply: providerJSONReply}, 5)

	_, err := svc.Answer(context.Background(), dto.AnswerRequest{
		SessionID:  uuid.New(),
		AnswerText: "hello",
	})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAnswerWithoutOpenTurn(t *testing.T) {
	finalReply := `{"feedback_bullets":["done"],"scores":{"content":80,"structure":80,"communication":80},"next_question":null}`
	svc, repo := newTestInterviewService(&stubCompleter{reply: finalReply}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	resp, err := svc.Answer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "first"})
	require.NoError(t, err)
	require.Nil(t, resp.NextQuestion)
	require.Equal(t, 0, countOpenTurns(t, repo, start.SessionID))

	_, err = svc.Answer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "second"})
	require.ErrorIs(t, err, ErrNoOpenTurn)
}

func TestAnswerEmptyAfterSanitization(t *testing.T) {
	svc, _ := newTestInterviewService(&stubCompleter{reply: providerJSONReply}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	_, err = svc.Answer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "   \n\t "})
	require.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestAnswerStripsMarkup(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{reply: providerJSONReply}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	_, err = svc.Answer(context.Background(), dto.AnswerRequest{
		SessionID:  start.SessionID,
		AnswerText: "<b>I led a migration</b>",
	})
	require.NoError(t, err)

	turns, err := repo.ListTurns(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Equal(t, "I led a migration", *turns[0].AText)
}

func TestAnswerFallsBackOnGarbageProviderOutput(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{reply: "### completely unusable ###"}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	resp, err := svc.Answer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "my answer"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Feedback.Bullets)
	for _, score := range []int{resp.Feedback.Scores.Content, resp.Feedback.Scores.Structure, resp.Feedback.Scores.Communication} {
		require.GreaterOrEqual(t, score, 0)
		require.LessOrEqual(t, score, 100)
	}
	require.NotNil(t, resp.NextQuestion)

	scores, err := repo.ListScores(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
}

func TestAnswerFallsBackOnProviderError(t *testing.T) {
	svc, _ := newTestInterviewService(&stubCompleter{err: errors.New("rate limited")}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	resp, err := svc.Answer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "my answer"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Feedback.Bullets)
}

func TestAnswerEnforcesTurnBudget(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{reply: providerJSONReply}, 2)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	first, err := svc.Answer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "answer one"})
	require.NoError(t, err)
	require.NotNil(t, first.NextQuestion)

	// The provider still offers a question, but the budget is spent.
	second, err := svc.Answer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "answer two"})
	require.NoError(t, err)
	require.Nil(t, second.NextQuestion)
	require.Equal(t, 0, countOpenTurns(t, repo, start.SessionID))
}

func TestConcurrentAnswersStaySerialised(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{reply: providerJSONReply}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Answer(context.Background(), dto.AnswerRequest{
				SessionID:  start.SessionID,
				AnswerText: "concurrent answer",
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 1, countOpenTurns(t, repo, start.SessionID))

	scores, err := repo.ListScores(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
}

func TestAnswerStreamForwardsFragmentsAndPersists(t *testing.T) {
	fragments := []string{
		"- Good concrete example\n",
		"|||\n",
		`{"content": 80, "structure": 75, "communication": 70}`,
		"\n|||\n",
		"Tell me about a setback",
	}
	svc, repo := newTestInterviewService(&stubCompleter{fragments: fragments}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	pending, err := svc.BeginAnswer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "my answer"})
	require.NoError(t, err)

	var received []string
	err = pending.Stream(context.Background(), func(chunk string) error {
		received = append(received, chunk)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, fragments, received)

	scores, err := repo.ListScores(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, 80, scores[0].Content)

	turns, err := repo.ListTurns(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "Tell me about a setback", turns[1].QText)
}

func TestAnswerStreamProviderErrorEmitsMarker(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{
		fragments: []string{"- partial feedback "},
		streamErr: errors.New("stream cut"),
	}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	pending, err := svc.BeginAnswer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "my answer"})
	require.NoError(t, err)

	var received strings.Builder
	err = pending.Stream(context.Background(), func(chunk string) error {
		received.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	require.Contains(t, received.String(), StreamErrorPrefix)

	// Persistence is skipped when the provider fails mid-stream.
	scores, err := repo.ListScores(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Empty(t, scores)
}

func TestAnswerStreamConsumerDisconnectStillPersists(t *testing.T) {
	svc, repo := newTestInterviewService(&stubCompleter{
		fragments: []string{"- first fragment\n", "ignored tail"},
	}, 5)

	start, err := svc.Start(context.Background(), dto.StartSessionRequest{})
	require.NoError(t, err)

	pending, err := svc.BeginAnswer(context.Background(), dto.AnswerRequest{SessionID: start.SessionID, AnswerText: "my answer"})
	require.NoError(t, err)

	calls := 0
	err = pending.Stream(context.Background(), func(string) error {
		calls++
		return errors.New("client went away")
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// The accumulated partial text is unusable, so the fallback score lands.
	scores, err := repo.ListScores(context.Background(), start.SessionID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, 50, scores[0].Content)
}
