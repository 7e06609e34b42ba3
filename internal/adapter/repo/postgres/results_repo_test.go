package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

var resultCols = []string{"id", "user_id", "video_id", "question", "scores", "transcript", "gemini_analysis", "created_at"}

func TestResultRepo_Insert(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	res := domain.InterviewResult{UserID: "u1", VideoReferenceID: "vid", Question: "Why should we hire you", Scores: domain.ScoreRecord{Confidence: 8, ImpPoints: []string{}}, Transcript: "t", NarrativeEvaluation: "n", CreatedAt: now}

	t.Run("generates id", func(t *testing.T) {
		t.Parallel()
		m := newMock(t)
		m.ExpectExec(`INSERT INTO interview_results`).
			WithArgs(pgxmock.AnyArg(), "u1", "vid", "Why should we hire you", pgxmock.AnyArg(), "t", "n", now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		id, err := postgres.NewResultRepo(m).Insert(context.Background(), res)
		require.NoError(t, err)
		assert.Len(t, id, 36)
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		m := newMock(t)
		m.ExpectExec(`INSERT INTO interview_results`).WillReturnError(assert.AnError)
		id, err := postgres.NewResultRepo(m).Insert(context.Background(), res)
		require.Error(t, err)
		assert.Empty(t, id)
		assert.Contains(t, err.Error(), "op=result.insert")
	})
}

func TestResultRepo_ListByQuestion(t *testing.T) {
	t.Parallel()
	m := newMock(t)
	newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)
	m.ExpectQuery(`WHERE user_id=\$1 AND question=\$2 ORDER BY created_at DESC`).
		WithArgs("u1", "What motivates you").
		WillReturnRows(pgxmock.NewRows(resultCols).
			AddRow("r2", "u1", "v2", "What motivates you", []byte(`{"confidence":7,"imp_points":["Slow down"]}`), "t2", "n2", newer).
			AddRow("r1", "u1", "v1", "What motivates you", []byte(`{"clarity":5}`), "t1", "n1", older))

	rs, err := postgres.NewResultRepo(m).ListByQuestion(context.Background(), "u1", "What motivates you")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "r2", rs[0].ID)
	assert.Equal(t, 7.0, rs[0].Scores.Confidence)
	assert.Equal(t, []string{"Slow down"}, rs[0].Scores.ImpPoints)
	assert.Equal(t, []string{}, rs[1].Scores.ImpPoints)
	assert.Equal(t, 5.0, rs[1].Scores.Clarity)
}

func TestResultRepo_ListByUserEmpty(t *testing.T) {
	t.Parallel()
	m := newMock(t)
	m.ExpectQuery(`FROM interview_results WHERE user_id=\$1 ORDER BY`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(resultCols))
	rs, err := postgres.NewResultRepo(m).ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, rs)
	assert.Empty(t, rs)
}

func TestResultRepo_ListErrors(t *testing.T) {
	t.Parallel()
	m := newMock(t)
	m.ExpectQuery(`FROM interview_results`).WithArgs("u1").WillReturnError(assert.AnError)
	_, err := postgres.NewResultRepo(m).ListByUser(context.Background(), "u1")
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "op=result.list_by_user")
}

func TestResultRepo_Get(t *testing.T) {
	t.Parallel()
	const id = "3f1c2b9e-8d4a-4c55-9a61-0b7f2e6d1a10"
	at := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		m := newMock(t)
		m.ExpectQuery(`FROM interview_results WHERE id=\$1 AND user_id=\$2`).
			WithArgs(id, "u1").
			WillReturnRows(pgxmock.NewRows(resultCols).
				AddRow(id, "u1", "v1", "What motivates you", []byte(`{"eye_contact":6}`), "t", "n", at))
		res, err := postgres.NewResultRepo(m).Get(context.Background(), "u1", id)
		require.NoError(t, err)
		assert.Equal(t, id, res.ID)
		assert.Equal(t, 6.0, res.Scores.EyeContact)
		assert.Equal(t, []string{}, res.Scores.ImpPoints)
		assert.Equal(t, at, res.CreatedAt)
	})

	t.Run("other owner or missing", func(t *testing.T) {
		t.Parallel()
		m := newMock(t)
		m.ExpectQuery(`FROM interview_results WHERE id=\$1 AND user_id=\$2`).
			WithArgs(id, "u2").
			WillReturnRows(pgxmock.NewRows(resultCols))
		_, err := postgres.NewResultRepo(m).Get(context.Background(), "u2", id)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed id never reaches the db", func(t *testing.T) {
		t.Parallel()
		m := newMock(t)
		_, err := postgres.NewResultRepo(m).Get(context.Background(), "u1", "not-a-uuid")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		m := newMock(t)
		m.ExpectQuery(`FROM interview_results`).WillReturnError(assert.AnError)
		_, err := postgres.NewResultRepo(m).Get(context.Background(), "u1", id)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "op=result.get")
	})
}
