package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/intervu-dev/intervu-go-api/pkg/ai"
)

const (
	subjectSessionStarted     = "interview.session_started"
	subjectTurnScored         = "interview.turn_scored"
	subjectInterviewCompleted = "interview.completed"
)

// EventPublisher emits interview lifecycle events on NATS. Publishing is
// best-effort: a nil connection or a publish failure never affects the
// request that triggered the event.
type EventPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewEventPublisher builds a publisher; conn may be nil when NATS is not
// configured.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// SessionStarted announces a newly created interview session.
func (p *EventPublisher) SessionStarted(sessionID uuid.UUID, roleProfile string) {
	p.publish(subjectSessionStarted, map[string]interface{}{
		"session_id":   sessionID,
		"role_profile": roleProfile,
		"occurred_at":  time.Now().UTC(),
	})
}

// TurnScored announces that an answered turn received its evaluation.
func (p *EventPublisher) TurnScored(sessionID, turnID uuid.UUID, scores ai.Scores) {
	p.publish(subjectTurnScored, map[string]interface{}{
		"session_id":  sessionID,
		"turn_id":     turnID,
		"scores":      scores,
		"occurred_at": time.Now().UTC(),
	})
}

// InterviewCompleted announces that a session reached its final turn.
func (p *EventPublisher) InterviewCompleted(sessionID uuid.UUID) {
	p.publish(subjectInterviewCompleted, map[string]interface{}{
		"session_id":  sessionID,
		"occurred_at": time.Now().UTC(),
	})
}

func (p *EventPublisher) publish(subject string, payload map[string]interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to encode event payload")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
