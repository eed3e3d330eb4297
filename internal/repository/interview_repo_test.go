package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/intervu-dev/intervu-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}, &models.Turn{}, &models.Score{}))

	return db
}

func newSessionWithQuestion(t *testing.T, repo InterviewRepository, role string) (models.Session, models.Turn) {
	t.Helper()

	session := models.Session{ID: uuid.New(), RoleProfile: role, CreatedAt: time.Now()}
	turn := models.Turn{ID: uuid.New(), SessionID: session.ID, QText: "Tell me about a project", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateSession(context.Background(), &session, &turn))

	return session, turn
}

func TestInterviewRepositoryCreateAndGetSession(t *testing.T) {
	repo := NewInterviewRepository(setupTestDB(t))

	session, turn := newSessionWithQuestion(t, repo, "Junior Developer")

	stored, err := repo.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, "Junior Developer", stored.RoleProfile)

	turns, err := repo.ListTurns(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, turn.ID, turns[0].ID)
	require.False(t, turns[0].Answered())
}

func TestInterviewRepositoryGetSessionNotFound(t *testing.T) {
	repo := NewInterviewRepository(setupTestDB(t))

	_, err := repo.GetSession(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInterviewRepositoryOpenTurnAndAttachAnswer(t *testing.T) {
	repo := NewInterviewRepository(setupTestDB(t))
	session, turn := newSessionWithQuestion(t, repo, "SRE")

	open, err := repo.OpenTurn(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, turn.ID, open.ID)

	require.NoError(t, repo.AttachAnswer(context.Background(), open.ID, "I automated the runbooks"))

	_, err = repo.OpenTurn(context.Background(), session.ID)
	require.ErrorIs(t, err, ErrNotFound)

	turns, err := repo.ListTurns(context.Background(), session.ID)
	require.NoError(t, err)
	require.True(t, turns[0].Answered())
	require.Equal(t, "I automated the runbooks", *turns[0].AText)
}

func TestInterviewRepositoryAttachAnswerUnknownTurn(t *testing.T) {
	repo := NewInterviewRepository(setupTestDB(t))

	err := repo.AttachAnswer(context.Background(), uuid.New(), "answer")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInterviewRepositorySaveEvaluationWithNextTurn(t *testing.T) {
	repo := NewInterviewRepository(setupTestDB(t))
	session, turn := newSessionWithQuestion(t, repo, "PM")

	require.NoError(t, repo.AttachAnswer(context.Background(), turn.ID, "answer"))

	score := models.Score{TurnID: turn.ID, Content: 80, Structure: 60, Comms: 70, CreatedAt: time.Now()}
	next := models.Turn{ID: uuid.New(), SessionID: session.ID, QText: "Tell me about a setback", CreatedAt: time.Now().Add(time.Millisecond)}
	require.NoError(t, repo.SaveEvaluation(context.Background(), &score, &next))

	turns, err := repo.ListTurns(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "Tell me about a setback", turns[1].QText)

	open, err := repo.OpenTurn(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, next.ID, open.ID)

	scores, err := repo.ListScores(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, 80, scores[0].Content)
}

func TestInterviewRepositoryListScoresSkipsUnansweredTurns(t *testing.T) {
	repo := NewInterviewRepository(setupTestDB(t))
	session, turn := newSessionWithQuestion(t, repo, "QA")

	// Score rows only count once their turn carries an answer.
	score := models.Score{TurnID: turn.ID, Content: 50, Structure: 50, Comms: 50, CreatedAt: time.Now()}
	require.NoError(t, repo.SaveEvaluation(context.Background(), &score, nil))

	scores, err := repo.ListScores(context.Background(), session.ID)
	require.NoError(t, err)
	require.Empty(t, scores)

	require.NoError(t, repo.AttachAnswer(context.Background(), turn.ID, "late answer"))

	scores, err = repo.ListScores(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
}
