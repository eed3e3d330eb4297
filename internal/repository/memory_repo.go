package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/intervu-dev/intervu-go-api/internal/models"
)

// memoryRepository is a process-local InterviewRepository used when no
// database is configured and as a lightweight backend for tests.
type memoryRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]models.Session
	turns    map[uuid.UUID][]models.Turn // keyed by session, in creation order
	scores   map[uuid.UUID]models.Score  // keyed by turn
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() InterviewRepository {
	return &memoryRepository{
		sessions: make(map[uuid.UUID]models.Session),
		turns:    make(map[uuid.UUID][]models.Turn),
		scores:   make(map[uuid.UUID]models.Score),
	}
}

func (r *memoryRepository) CreateSession(_ context.Context, session *models.Session, firstTurn *models.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = *session
	r.turns[session.ID] = []models.Turn{*firstTurn}
	return nil
}

func (r *memoryRepository) GetSession(_ context.Context, id uuid.UUID) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	return session, nil
}

func (r *memoryRepository) ListTurns(_ context.Context, sessionID uuid.UUID) ([]models.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	turns := r.turns[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r *memoryRepository) OpenTurn(_ context.Context, sessionID uuid.UUID) (models.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	turns := r.turns[sessionID]
	for i := len(turns) - 1; i >= 0; i-- {
		if !turns[i].Answered() {
			return turns[i], nil
		}
	}
	return models.Turn{}, ErrNotFound
}

func (r *memoryRepository) AttachAnswer(_ context.Context, turnID uuid.UUID, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID, turns := range r.turns {
		for i := range turns {
			if turns[i].ID == turnID {
				text := answer
				turns[i].AText = &text
				r.turns[sessionID] = turns
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *memoryRepository) SaveEvaluation(_ context.Context, score *models.Score, next *models.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scores[score.TurnID] = *score
	if next != nil {
		r.turns[next.SessionID] = append(r.turns[next.SessionID], *next)
	}
	return nil
}

func (r *memoryRepository) ListScores(_ context.Context, sessionID uuid.UUID) ([]models.Score, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var scores []models.Score
	for _, turn := range r.turns[sessionID] {
		if !turn.Answered() {
			continue
		}
		if score, ok := r.scores[turn.ID]; ok {
			scores = append(scores, score)
		}
	}
	return scores, nil
}
