package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intervu-dev/intervu-go-api/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// InterviewRepository defines persistence operations for sessions, turns
// and scores.
type InterviewRepository interface {
	// CreateSession stores a new session together with its opening turn.
	CreateSession(ctx context.Context, session *models.Session, firstTurn *models.Turn) error
	GetSession(ctx context.Context, id uuid.UUID) (models.Session, error)
	// ListTurns returns every turn of the session ordered by creation time.
	ListTurns(ctx context.Context, sessionID uuid.UUID) ([]models.Turn, error)
	// OpenTurn returns the single unanswered turn of the session, or
	// ErrNotFound when every turn has been answered.
	OpenTurn(ctx context.Context, sessionID uuid.UUID) (models.Turn, error)
	AttachAnswer(ctx context.Context, turnID uuid.UUID, answer string) error
	// SaveEvaluation persists a score and, when next is non-nil, the next
	// open turn within one transaction.
	SaveEvaluation(ctx context.Context, score *models.Score, next *models.Turn) error
	// ListScores returns the scores of every answered turn in the session.
	ListScores(ctx context.Context, sessionID uuid.UUID) ([]models.Score, error)
}

type interviewRepository struct {
	db *gorm.DB
}

// NewInterviewRepository instantiates a GORM-backed repository.
func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

func (r *interviewRepository) CreateSession(ctx context.Context, session *models.Session, firstTurn *models.Turn) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		return tx.Create(firstTurn).Error
	})
}

func (r *interviewRepository) GetSession(ctx context.Context, id uuid.UUID) (models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return models.Session{}, translateNotFound(err)
	}

	return session, nil
}

func (r *interviewRepository) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]models.Turn, error) {
	var turns []models.Turn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&turns).Error
	if err != nil {
		return nil, err
	}

	return turns, nil
}

func (r *interviewRepository) OpenTurn(ctx context.Context, sessionID uuid.UUID) (models.Turn, error) {
	var turn models.Turn
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND a_text IS NULL", sessionID).
		Order("created_at DESC").
		First(&turn).Error
	if err != nil {
		return models.Turn{}, translateNotFound(err)
	}

	return turn, nil
}

func (r *interviewRepository) AttachAnswer(ctx context.Context, turnID uuid.UUID, answer string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Turn{}).
		Where("id = ?", turnID).
		Update("a_text", answer)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *interviewRepository) SaveEvaluation(ctx context.Context, score *models.Score, next *models.Turn) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(score).Error; err != nil {
			return err
		}
		if next != nil {
			return tx.Create(next).Error
		}
		return nil
	})
}

func (r *interviewRepository) ListScores(ctx context.Context, sessionID uuid.UUID) ([]models.Score, error) {
	var scores []models.Score
	err := r.db.WithContext(ctx).
		Joins("JOIN turns ON turns.id = scores.turn_id").
		Where("turns.session_id = ? AND turns.a_text IS NOT NULL", sessionID).
		Find(&scores).Error
	if err != nil {
		return nil, err
	}

	return scores, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
