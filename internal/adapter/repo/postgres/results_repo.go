package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// ResultRepo persists interview results. Rows are never updated.
type ResultRepo struct{ Pool PgxPool }

// NewResultRepo constructs a ResultRepo with the given pool.
func NewResultRepo(p PgxPool) *ResultRepo { return &ResultRepo{Pool: p} }

const resultColumns = `id, user_id, video_id, question, scores, transcript, gemini_analysis, created_at`

// Insert stores a result and returns its id (generates one if empty).
func (r *ResultRepo) Insert(ctx domain.Context, res domain.InterviewResult) (string, error) {
	ctx, span := startSpan(ctx, "interview_results", "Insert", "INSERT")
	defer span.End()
	id := res.ID
	if id == "" {
		id = uuid.New().String()
	}
	scores, err := json.Marshal(res.Scores)
	if err != nil {
		return "", fmt.Errorf("op=result.insert: %w", err)
	}
	q := `INSERT INTO interview_results (` + resultColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := r.Pool.Exec(ctx, q, id, res.UserID, res.VideoReferenceID, res.Question, scores, res.Transcript, res.NarrativeEvaluation, res.CreatedAt); err != nil {
		return "", fmt.Errorf("op=result.insert: %w", err)
	}
	return id, nil
}

// Get loads one of the user's results. Results of other users and ids that are
// not UUIDs are reported as domain.ErrNotFound.
func (r *ResultRepo) Get(ctx domain.Context, userID, id string) (domain.InterviewResult, error) {
	ctx, span := startSpan(ctx, "interview_results", "Get", "SELECT")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return domain.InterviewResult{}, fmt.Errorf("op=result.get: %w", domain.ErrNotFound)
	}
	q := `SELECT ` + resultColumns + ` FROM interview_results WHERE id=$1 AND user_id=$2`
	res, err := scanResult(r.Pool.QueryRow(ctx, q, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InterviewResult{}, fmt.Errorf("op=result.get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.InterviewResult{}, fmt.Errorf("op=result.get: %w", err)
	}
	return res, nil
}

// ListByQuestion returns the user's results for one question, newest first.
func (r *ResultRepo) ListByQuestion(ctx domain.Context, userID, question string) ([]domain.InterviewResult, error) {
	ctx, span := startSpan(ctx, "interview_results", "ListByQuestion", "SELECT")
	defer span.End()
	q := `SELECT ` + resultColumns + ` FROM interview_results WHERE user_id=$1 AND question=$2 ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID, question)
	if err != nil {
		return nil, fmt.Errorf("op=result.list_by_question: %w", err)
	}
	out, err := collectResults(rows)
	if err != nil {
		return nil, fmt.Errorf("op=result.list_by_question: %w", err)
	}
	return out, nil
}

// ListByUser returns every result of the user, newest first.
func (r *ResultRepo) ListByUser(ctx domain.Context, userID string) ([]domain.InterviewResult, error) {
	ctx, span := startSpan(ctx, "interview_results", "ListByUser", "SELECT")
	defer span.End()
	q := `SELECT ` + resultColumns + ` FROM interview_results WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=result.list_by_user: %w", err)
	}
	out, err := collectResults(rows)
	if err != nil {
		return nil, fmt.Errorf("op=result.list_by_user: %w", err)
	}
	return out, nil
}

func collectResults(rows pgx.Rows) ([]domain.InterviewResult, error) {
	defer rows.Close()
	out := []domain.InterviewResult{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResult(row pgx.Row) (domain.InterviewResult, error) {
	var (
		res    domain.InterviewResult
		scores []byte
	)
	if err := row.Scan(&res.ID, &res.UserID, &res.VideoReferenceID, &res.Question, &scores, &res.Transcript, &res.NarrativeEvaluation, &res.CreatedAt); err != nil {
		return res, err
	}
	res.Scores = domain.DefaultScoreRecord()
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &res.Scores); err != nil {
			return res, fmt.Errorf("decode scores of %s: %w", res.ID, err)
		}
	}
	if res.Scores.ImpPoints == nil {
		res.Scores.ImpPoints = []string{}
	}
	return res, nil
}
