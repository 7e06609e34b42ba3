package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// ResumeRepo persists resume metadata and chat history.
type ResumeRepo struct{ Pool PgxPool }

// NewResumeRepo constructs a ResumeRepo with the given pool.
func NewResumeRepo(p PgxPool) *ResumeRepo { return &ResumeRepo{Pool: p} }

const resumeColumns = `id, reference_id, owner_id, filename, storage_path, mime, size, job_description, uploaded_at, analyzed, analysis_id, chat_history`

// Create stores a resume and returns its storage id.
func (r *ResumeRepo) Create(ctx domain.Context, res domain.Resume) (string, error) {
	ctx, span := startSpan(ctx, "resumes", "Create", "INSERT")
	defer span.End()
	id := res.ID
	if id == "" {
		id = uuid.New().String()
	}
	history := res.ChatHistory
	if history == nil {
		history = []domain.ChatMessage{}
	}
	chat, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("op=resume.create: %w", err)
	}
	q := `INSERT INTO resumes (` + resumeColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = r.Pool.Exec(ctx, q, id, res.ReferenceID, res.OwnerID, res.Filename, res.StoragePath, res.MIME, res.Size,
		res.JobDescription, res.UploadedAt, res.Analyzed, res.AnalysisID, chat)
	if err != nil {
		return "", fmt.Errorf("op=resume.create: %w", err)
	}
	return id, nil
}

// GetByReference loads the owner's resume by client reference id.
func (r *ResumeRepo) GetByReference(ctx domain.Context, ownerID, referenceID string) (domain.Resume, error) {
	ctx, span := startSpan(ctx, "resumes", "GetByReference", "SELECT")
	defer span.End()
	q := `SELECT ` + resumeColumns + ` FROM resumes WHERE owner_id=$1 AND reference_id=$2`
	res, err := scanResume(r.Pool.QueryRow(ctx, q, ownerID, referenceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Resume{}, fmt.Errorf("op=resume.get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Resume{}, fmt.Errorf("op=resume.get: %w", err)
	}
	return res, nil
}

// ListByOwner returns the owner's resumes, newest first.
func (r *ResumeRepo) ListByOwner(ctx domain.Context, ownerID string) ([]domain.Resume, error) {
	ctx, span := startSpan(ctx, "resumes", "ListByOwner", "SELECT")
	defer span.End()
	q := `SELECT ` + resumeColumns + ` FROM resumes WHERE owner_id=$1 ORDER BY uploaded_at DESC`
	rows, err := r.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("op=resume.list: %w", err)
	}
	defer rows.Close()
	out := []domain.Resume{}
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("op=resume.list: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=resume.list: %w", err)
	}
	return out, nil
}

// MarkAnalyzed links an analysis to the resume.
func (r *ResumeRepo) MarkAnalyzed(ctx domain.Context, resumeID, analysisID string) error {
	ctx, span := startSpan(ctx, "resumes", "MarkAnalyzed", "UPDATE")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `UPDATE resumes SET analyzed=true, analysis_id=$2 WHERE id=$1`, resumeID, analysisID)
	if err != nil {
		return fmt.Errorf("op=resume.mark_analyzed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=resume.mark_analyzed: %w", domain.ErrNotFound)
	}
	return nil
}

// AppendChat appends one exchange to the chat history without rewriting it.
func (r *ResumeRepo) AppendChat(ctx domain.Context, resumeID string, msg domain.ChatMessage) error {
	ctx, span := startSpan(ctx, "resumes", "AppendChat", "UPDATE")
	defer span.End()
	entry, err := json.Marshal([]domain.ChatMessage{msg})
	if err != nil {
		return fmt.Errorf("op=resume.append_chat: %w", err)
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE resumes SET chat_history = chat_history || $2::jsonb WHERE id=$1`, resumeID, string(entry))
	if err != nil {
		return fmt.Errorf("op=resume.append_chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=resume.append_chat: %w", domain.ErrNotFound)
	}
	return nil
}

func scanResume(row pgx.Row) (domain.Resume, error) {
	var (
		res  domain.Resume
		chat []byte
	)
	err := row.Scan(&res.ID, &res.ReferenceID, &res.OwnerID, &res.Filename, &res.StoragePath, &res.MIME, &res.Size,
		&res.JobDescription, &res.UploadedAt, &res.Analyzed, &res.AnalysisID, &chat)
	if err != nil {
		return domain.Resume{}, err
	}
	res.ChatHistory = []domain.ChatMessage{}
	if len(chat) > 0 {
		if err := json.Unmarshal(chat, &res.ChatHistory); err != nil {
			return domain.Resume{}, fmt.Errorf("decode chat history of %s: %w", res.ID, err)
		}
	}
	return res, nil
}
