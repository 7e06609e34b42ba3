package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// ProgressRepo persists question rotation state, one row per user.
type ProgressRepo struct{ Pool PgxPool }

// NewProgressRepo constructs a ProgressRepo with the given pool.
func NewProgressRepo(p PgxPool) *ProgressRepo { return &ProgressRepo{Pool: p} }

const progressColumns = `user_id, asked_questions, current_question, updated_at`

// Get loads the user's progress or returns domain.ErrNotFound.
func (r *ProgressRepo) Get(ctx domain.Context, userID string) (domain.InterviewProgress, error) {
	ctx, span := startSpan(ctx, "interview_progress", "Get", "SELECT")
	defer span.End()
	q := `SELECT ` + progressColumns + ` FROM interview_progress WHERE user_id=$1`
	p, err := scanProgress(r.Pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InterviewProgress{}, fmt.Errorf("op=progress.get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.InterviewProgress{}, fmt.Errorf("op=progress.get: %w", err)
	}
	return p, nil
}

// Upsert replaces the user's progress row.
func (r *ProgressRepo) Upsert(ctx domain.Context, p domain.InterviewProgress) error {
	ctx, span := startSpan(ctx, "interview_progress", "Upsert", "UPSERT")
	defer span.End()
	asked := p.AskedQuestions
	if asked == nil {
		asked = []string{}
	}
	q := `INSERT INTO interview_progress (user_id, asked_questions, current_question, updated_at)
	VALUES ($1,$2,$3,$4)
	ON CONFLICT (user_id)
	DO UPDATE SET asked_questions=EXCLUDED.asked_questions, current_question=EXCLUDED.current_question, updated_at=EXCLUDED.updated_at`
	if _, err := r.Pool.Exec(ctx, q, p.UserID, asked, p.CurrentQuestion, p.UpdatedAt); err != nil {
		return fmt.Errorf("op=progress.upsert: %w", err)
	}
	return nil
}

// AppendAsked appends q and makes it current in a single statement. The update
// is skipped when q is already present, which surfaces as domain.ErrConflict.
func (r *ProgressRepo) AppendAsked(ctx domain.Context, userID, q string, at time.Time) (domain.InterviewProgress, error) {
	ctx, span := startSpan(ctx, "interview_progress", "AppendAsked", "UPSERT")
	defer span.End()
	stmt := `INSERT INTO interview_progress (user_id, asked_questions, current_question, updated_at)
	VALUES ($1, ARRAY[$2::text], $2::text, $3)
	ON CONFLICT (user_id)
	DO UPDATE SET asked_questions=array_append(interview_progress.asked_questions, $2::text), current_question=$2::text, updated_at=$3
	WHERE NOT ($2::text = ANY(interview_progress.asked_questions))
	RETURNING ` + progressColumns
	p, err := scanProgress(r.Pool.QueryRow(ctx, stmt, userID, q, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InterviewProgress{}, fmt.Errorf("op=progress.append_asked: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.InterviewProgress{}, fmt.Errorf("op=progress.append_asked: %w", err)
	}
	return p, nil
}

func scanProgress(row pgx.Row) (domain.InterviewProgress, error) {
	var p domain.InterviewProgress
	if err := row.Scan(&p.UserID, &p.AskedQuestions, &p.CurrentQuestion, &p.UpdatedAt); err != nil {
		return domain.InterviewProgress{}, err
	}
	if p.AskedQuestions == nil {
		p.AskedQuestions = []string{}
	}
	return p, nil
}
