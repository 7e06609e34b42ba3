package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// ResumeAnalysisRepo persists resume analyses.
type ResumeAnalysisRepo struct{ Pool PgxPool }

// NewResumeAnalysisRepo constructs a ResumeAnalysisRepo with the given pool.
func NewResumeAnalysisRepo(p PgxPool) *ResumeAnalysisRepo { return &ResumeAnalysisRepo{Pool: p} }

// Create stores an analysis and returns its id.
func (r *ResumeAnalysisRepo) Create(ctx domain.Context, a domain.ResumeAnalysis) (string, error) {
	ctx, span := startSpan(ctx, "resume_analyses", "Create", "INSERT")
	defer span.End()
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return "", fmt.Errorf("op=resume_analysis.create: %w", err)
	}
	q := `INSERT INTO resume_analyses (id, resume_id, owner_id, payload, rewritten_resume, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, id, a.ResumeID, a.OwnerID, payload, a.RewrittenResume, a.CreatedAt); err != nil {
		return "", fmt.Errorf("op=resume_analysis.create: %w", err)
	}
	return id, nil
}

// Get loads an analysis by id or returns domain.ErrNotFound.
func (r *ResumeAnalysisRepo) Get(ctx domain.Context, id string) (domain.ResumeAnalysis, error) {
	ctx, span := startSpan(ctx, "resume_analyses", "Get", "SELECT")
	defer span.End()
	q := `SELECT id, resume_id, owner_id, payload, rewritten_resume, created_at FROM resume_analyses WHERE id=$1`
	var (
		a       domain.ResumeAnalysis
		payload []byte
	)
	err := r.Pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.ResumeID, &a.OwnerID, &payload, &a.RewrittenResume, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResumeAnalysis{}, fmt.Errorf("op=resume_analysis.get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.ResumeAnalysis{}, fmt.Errorf("op=resume_analysis.get: %w", err)
	}
	a.Payload = domain.DefaultAnalysisPayload()
	if err := json.Unmarshal(payload, &a.Payload); err != nil {
		return domain.ResumeAnalysis{}, fmt.Errorf("op=resume_analysis.get: decode payload: %w", err)
	}
	return a, nil
}
