package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/intervu-dev/intervu-go-api/internal/dto"
	"github.com/intervu-dev/intervu-go-api/internal/models"
	"github.com/intervu-dev/intervu-go-api/internal/repository"
	"github.com/intervu-dev/intervu-go-api/pkg/ai"
)

// ErrSessionNotFound indicates the requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoOpenTurn indicates the session has no unanswered question to attach
// an answer to.
var ErrNoOpenTurn = errors.New("no open question found")

// ErrEmptyAnswer indicates the submitted answer was empty after trimming.
var ErrEmptyAnswer = errors.New("answer text must not be empty")

const firstQuestionTemplate = "Welcome. For the %s role, can you tell me about a specific project or achievement you are particularly proud of?"

// StreamErrorPrefix marks the final chunk of a streamed answer when the
// completion provider fails mid-flight.
const StreamErrorPrefix = "STREAM_ERROR: "

// InterviewService exposes the interview orchestration use cases.
type InterviewService interface {
	Start(ctx context.Context, req dto.StartSessionRequest) (dto.StartSessionResponse, error)
	// Answer runs the blocking evaluation flow.
	Answer(ctx context.Context, req dto.AnswerRequest) (dto.AnswerResponse, error)
	// BeginAnswer validates the request, serialises on the session, loads
	// history and attaches the answer to the open turn. The returned
	// PendingAnswer must be finished with exactly one Complete or Stream
	// call, which releases the per-session lock.
	BeginAnswer(ctx context.Context, req dto.AnswerRequest) (*PendingAnswer, error)
}

// InterviewOptions carries the tunable interview parameters.
type InterviewOptions struct {
	DefaultRoleProfile string
	MaxTurns           int
	ProviderTimeout    time.Duration
}

type interviewService struct {
	repo            repository.InterviewRepository
	completer       ai.Completer
	events          *EventPublisher
	validator       *validator.Validate
	policy          *bluemonday.Policy
	logger          zerolog.Logger
	defaultRole     string
	maxTurns        int
	providerTimeout time.Duration
	now             func() time.Time

	// sessionLocks serialises concurrent answer calls against one session
	// so only one request at a time can claim the open turn. Entries live
	// for the process lifetime, matching the session lifecycle.
	mu           sync.Mutex
	sessionLocks map[uuid.UUID]*sync.Mutex
}

// NewInterviewService builds the interview orchestrator.
func NewInterviewService(repo repository.InterviewRepository, completer ai.Completer, events *EventPublisher, validate *validator.Validate, opts InterviewOptions, logger zerolog.Logger) InterviewService {
	if opts.DefaultRoleProfile == "" {
		opts.DefaultRoleProfile = "Software Engineer"
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 5
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 45 * time.Second
	}

	return &interviewService{
		repo:            repo,
		completer:       completer,
		events:          events,
		validator:       validate,
		policy:          bluemonday.StrictPolicy(),
		logger:          logger.With().Str("component", "interview_service").Logger(),
		defaultRole:     opts.DefaultRoleProfile,
		maxTurns:        opts.MaxTurns,
		providerTimeout: opts.ProviderTimeout,
		now:             time.Now,
		sessionLocks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *interviewService) Start(ctx context.Context, req dto.StartSessionRequest) (dto.StartSessionResponse, error) {
	role := s.sanitize(req.RoleProfile)
	if role == "" {
		role = s.defaultRole
	}

	session := models.Session{
		ID:          uuid.New(),
		RoleProfile: role,
		CreatedAt:   s.now(),
	}
	firstTurn := models.Turn{
		ID:        uuid.New(),
		SessionID: session.ID,
		QText:     fmt.Sprintf(firstQuestionTemplate, role),
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateSession(ctx, &session, &firstTurn); err != nil {
		return dto.StartSessionResponse{}, err
	}

	s.events.SessionStarted(session.ID, role)
	s.logger.Info().Str("session_id", session.ID.String()).Str("role_profile", role).Msg("interview session started")

	return dto.StartSessionResponse{
		SessionID:     session.ID,
		FirstQuestion: firstTurn.QText,
	}, nil
}

func (s *interviewService) Answer(ctx context.Context, req dto.AnswerRequest) (dto.AnswerResponse, error) {
	pending, err := s.BeginAnswer(ctx, req)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	return pending.Complete(ctx)
}

func (s *interviewService) BeginAnswer(ctx context.Context, req dto.AnswerRequest) (*PendingAnswer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	answer := s.sanitize(req.AnswerText)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	unlock := s.lockSession(req.SessionID)

	session, err := s.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		unlock()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	turns, err := s.repo.ListTurns(ctx, session.ID)
	if err != nil {
		unlock()
		return nil, err
	}

	open, err := s.repo.OpenTurn(ctx, session.ID)
	if err != nil {
		unlock()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoOpenTurn
		}
		return nil, err
	}

	if err := s.repo.AttachAnswer(ctx, open.ID, answer); err != nil {
		unlock()
		return nil, err
	}

	// History is rendered as loaded, so the open turn appears with an empty
	// answer and the latest answer rides separately in the prompt.
	history := make([]ai.TurnContext, 0, len(turns))
	answered := 0
	for _, turn := range turns {
		entry := ai.TurnContext{Question: turn.QText}
		if turn.Answered() {
			answered++
			entry.Answer = *turn.AText
		}
		history = append(history, entry)
	}
	answered++ // the answer attached above

	pending := &PendingAnswer{
		svc:           s,
		session:       session,
		turn:          open,
		answer:        answer,
		history:       history,
		budgetReached: answered >= s.maxTurns,
		release:       unlock,
	}
	return pending, nil
}

func (s *interviewService) lockSession(id uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.sessionLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionLocks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *interviewService) sanitize(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// PendingAnswer is an attached answer whose provider evaluation has not run
// yet. It holds the per-session lock until finished.
type PendingAnswer struct {
	svc           *interviewService
	session       models.Session
	turn          models.Turn
	answer        string
	history       []ai.TurnContext
	budgetReached bool
	release       func()
	once          sync.Once
}

func (p *PendingAnswer) finish() {
	p.once.Do(p.release)
}

// Complete evaluates the answer with one blocking provider call. Provider
// and decode failures degrade to the fallback reply; only persistence
// failures are returned.
func (p *PendingAnswer) Complete(ctx context.Context) (dto.AnswerResponse, error) {
	defer p.finish()

	prompt := ai.BuildJSONPrompt(p.answer, p.session.RoleProfile, p.history, p.svc.maxTurns)

	callCtx, cancel := context.WithTimeout(ctx, p.svc.providerTimeout)
	defer cancel()

	var reply ai.Reply
	raw, err := p.svc.completer.Complete(callCtx, prompt)
	if err != nil {
		p.svc.logger.Warn().Err(err).Str("session_id", p.session.ID.String()).Msg("completion provider failed, using fallback reply")
		reply = ai.FallbackReply()
	} else {
		reply = ai.Parse(raw)
	}

	return p.svc.persistReply(ctx, p, reply)
}

// Stream evaluates the answer in streaming mode, forwarding each provider
// fragment to emit as it arrives. Provider errors surface as a final
// error-prefixed chunk; a consumer that stops accepting fragments only skips
// the remaining forwarding, not the persistence of what was accumulated.
func (p *PendingAnswer) Stream(ctx context.Context, emit func(string) error) error {
	defer p.finish()

	prompt := ai.BuildStreamingPrompt(p.answer, p.session.RoleProfile, p.history, p.svc.maxTurns)

	callCtx, cancel := context.WithTimeout(ctx, p.svc.providerTimeout)
	defer cancel()

	consumerGone := false
	forward := func(fragment string) error {
		if err := emit(fragment); err != nil {
			consumerGone = true
			return err
		}
		return nil
	}

	raw, err := p.svc.completer.CompleteStream(callCtx, prompt, forward)
	if err != nil && !consumerGone {
		p.svc.logger.Warn().Err(err).Str("session_id", p.session.ID.String()).Msg("completion stream failed")
		_ = emit(StreamErrorPrefix + "completion provider failed")
		return nil
	}

	if consumerGone {
		p.svc.logger.Debug().Str("session_id", p.session.ID.String()).Msg("stream consumer disconnected, persisting accumulated reply")
	}

	// Persistence still runs when the consumer disconnected, so detach from
	// the request-scoped cancellation.
	if _, err := p.svc.persistReply(context.WithoutCancel(ctx), p, ai.Parse(raw)); err != nil {
		p.svc.logger.Error().Err(err).Str("session_id", p.session.ID.String()).Msg("failed to persist streamed evaluation")
		return err
	}
	return nil
}

func (s *interviewService) persistReply(ctx context.Context, p *PendingAnswer, reply ai.Reply) (dto.AnswerResponse, error) {
	if p.budgetReached {
		reply.Complete = true
		reply.NextQuestion = ""
	}

	score := models.Score{
		TurnID:    p.turn.ID,
		Content:   reply.Scores.Content,
		Structure: reply.Scores.Structure,
		Comms:     reply.Scores.Communication,
		CreatedAt: s.now(),
	}

	var next *models.Turn
	if !reply.Complete && reply.NextQuestion != "" {
		next = &models.Turn{
			ID:        uuid.New(),
			SessionID: p.session.ID,
			QText:     reply.NextQuestion,
			CreatedAt: s.now(),
		}
	}

	if err := s.repo.SaveEvaluation(ctx, &score, next); err != nil {
		return dto.AnswerResponse{}, err
	}

	s.events.TurnScored(p.session.ID, p.turn.ID, reply.Scores)
	if next == nil {
		s.events.InterviewCompleted(p.session.ID)
	}

	response := dto.AnswerResponse{
		Feedback: dto.Feedback{
			Bullets: reply.Bullets,
			Scores: dto.ScoreCard{
				Content:       reply.Scores.Content,
				Structure:     reply.Scores.Structure,
				Communication: reply.Scores.Communication,
			},
		},
	}
	if next != nil {
		question := next.QText
		response.NextQuestion = &question
	}
	return response, nil
}
