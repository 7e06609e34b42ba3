package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	obsmetrics "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/pkg/textx"
)

const resumePipeline = "resume"

// chatContextTurns is how many previous exchanges are replayed into a chat prompt.
const chatContextTurns = 5

// TokenBudget trims text to a model token budget.
type TokenBudget interface {
	Truncate(text string, maxTokens int) string
}

// ResumeUpload is a resume file already written to storage.
type ResumeUpload struct {
	Path           string
	Filename       string
	MIME           string
	Size           int64
	JobDescription string
}

// ResumeAnalysisView is what callers see of an analysis.
type ResumeAnalysisView struct {
	ResumeID        string                 `json:"resume_id"`
	Analysis        domain.AnalysisPayload `json:"analysis"`
	RewrittenResume string                 `json:"ai_generated_resume"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ResumeService uploads, analyzes and chats about resumes.
type ResumeService struct {
	Resumes         domain.ResumeRepository
	Analyses        domain.ResumeAnalysisRepository
	Extractor       domain.TextExtractor
	Generator       domain.Generator
	Budget          TokenBudget
	MaxPromptTokens int
	Events          domain.EventPublisher
	NewRef          func() string
	Now             func() time.Time
}

// NewResumeService constructs a ResumeService with ULID reference ids.
func NewResumeService(r domain.ResumeRepository, a domain.ResumeAnalysisRepository, x domain.TextExtractor, g domain.Generator) ResumeService {
	return ResumeService{
		Resumes:   r,
		Analyses:  a,
		Extractor: x,
		Generator: g,
		NewRef:    func() string { return ulid.Make().String() },
		Now:       time.Now,
	}
}

// Upload records resume metadata with analyzed=false. When the record cannot be
// saved the stored file is removed so no orphaned file remains.
func (s ResumeService) Upload(ctx domain.Context, ownerID string, up ResumeUpload) (domain.Resume, error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("user_id", ownerID))
	if ownerID == "" || up.Path == "" || strings.TrimSpace(up.Filename) == "" {
		removeMedia(lg, up.Path)
		return domain.Resume{}, fmt.Errorf("%w: resume file and owner required", domain.ErrInvalidArgument)
	}
	r := domain.Resume{
		ReferenceID: s.newRef(),
		OwnerID:     ownerID,
		Filename:    up.Filename,
		StoragePath: up.Path,
		MIME:        up.MIME,
		Size:        up.Size,
		UploadedAt:  s.now(),
		ChatHistory: []domain.ChatMessage{},
	}
	if jd := strings.TrimSpace(up.JobDescription); jd != "" {
		r.JobDescription = &jd
	}
	id, err := s.Resumes.Create(ctx, r)
	if err != nil {
		lg.Error("resume metadata not saved; removing file", slog.Any("error", err))
		if rmErr := os.Remove(up.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			lg.Warn("resume file cleanup failed", slog.String("path", up.Path), slog.Any("error", rmErr))
		}
		return domain.Resume{}, fmt.Errorf("op=resume.upload: %w", err)
	}
	r.ID = id
	lg.Info("resume uploaded", slog.String("resume_ref", r.ReferenceID), slog.Int64("size", up.Size))
	return r, nil
}

// List returns the owner's resumes, newest first.
func (s ResumeService) List(ctx domain.Context, ownerID string) ([]domain.Resume, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	rs, err := s.Resumes.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("op=resume.list: %w", err)
	}
	return rs, nil
}

// Analyze returns the stored analysis when one is linked, otherwise scores and
// rewrites the resume with a single generator call and links the new analysis.
func (s ResumeService) Analyze(ctx domain.Context, ownerID, referenceID string) (view ResumeAnalysisView, err error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("user_id", ownerID), slog.String("resume_ref", referenceID))
	r, err := s.resume(ctx, ownerID, referenceID)
	if err != nil {
		return view, err
	}
	if r.Analyzed && r.AnalysisID != nil {
		a, gerr := s.Analyses.Get(ctx, *r.AnalysisID)
		switch {
		case gerr == nil:
			lg.Debug("returning cached resume analysis", slog.String("analysis_id", a.ID))
			return toView(referenceID, a), nil
		case errors.Is(gerr, domain.ErrNotFound):
			lg.Warn("linked analysis missing; recomputing", slog.String("analysis_id", *r.AnalysisID))
		default:
			return view, fmt.Errorf("op=resume.analysis_get: %w", gerr)
		}
	}

	obsmetrics.StartPipeline(resumePipeline)
	outcome := "failed"
	defer func() { obsmetrics.FinishPipeline(resumePipeline, outcome) }()

	text, err := s.Extractor.ExtractPath(ctx, r.Filename, r.StoragePath)
	if err != nil {
		return view, fmt.Errorf("op=resume.extract: %w", err)
	}
	text = textx.SanitizeText(text)
	if text == "" {
		return view, fmt.Errorf("%w: resume has no extractable text", domain.ErrInvalidArgument)
	}
	if s.Budget != nil && s.MaxPromptTokens > 0 {
		text = s.Budget.Truncate(text, s.MaxPromptTokens)
	}
	jd := ""
	if r.JobDescription != nil {
		jd = *r.JobDescription
	}
	reply, err := s.Generator.Generate(ctx, BuildResumeAnalysisPrompt(text, jd))
	if err != nil {
		return view, fmt.Errorf("%w: resume analysis generation: %v", domain.ErrUpstreamUnavailable, err)
	}
	payload, rewritten := ParseResumeAnalysis(reply)
	a := domain.ResumeAnalysis{
		ResumeID:        r.ID,
		OwnerID:         ownerID,
		Payload:         payload,
		RewrittenResume: rewritten,
		CreatedAt:       s.now(),
	}
	a.ID, err = s.Analyses.Create(ctx, a)
	if err != nil {
		return view, fmt.Errorf("op=resume.analysis_create: %w", err)
	}
	outcome = "analyzed"
	if lerr := s.Resumes.MarkAnalyzed(ctx, r.ID, a.ID); lerr != nil {
		// The analysis row exists but the resume does not point at it.
		lg.Error("resume analysis orphaned: link update failed", slog.String("analysis_id", a.ID), slog.Any("error", lerr))
		outcome = "orphaned"
	}
	obsmetrics.ObserveResumeScore(payload.Score)
	if s.Events != nil {
		ev := domain.Event{Type: domain.EventResumeAnalyzed, UserID: ownerID, EntityID: referenceID, OccurredAt: a.CreatedAt,
			Attributes: map[string]any{"score": payload.Score}}
		if perr := s.Events.Publish(ctx, ev); perr != nil {
			lg.Warn("event publish failed", slog.String("type", ev.Type), slog.Any("error", perr))
		}
	}
	lg.Info("resume analyzed", slog.String("analysis_id", a.ID), slog.Float64("score", payload.Score))
	return toView(referenceID, a), nil
}

// Chat answers a follow-up question about an analyzed resume. The reply is
// returned even when recording it in the chat history fails.
func (s ResumeService) Chat(ctx domain.Context, ownerID, referenceID, message string) (string, error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("user_id", ownerID), slog.String("resume_ref", referenceID))
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message required", domain.ErrInvalidArgument)
	}
	r, err := s.resume(ctx, ownerID, referenceID)
	if err != nil {
		return "", err
	}
	if !r.Analyzed || r.AnalysisID == nil {
		return "", fmt.Errorf("%w: resume has not been analyzed", domain.ErrInvalidArgument)
	}
	a, err := s.Analyses.Get(ctx, *r.AnalysisID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("%w: resume analysis missing; analyze the resume again", domain.ErrInvalidArgument)
	}
	if err != nil {
		return "", fmt.Errorf("op=resume.chat_analysis: %w", err)
	}
	reply, err := s.Generator.Generate(ctx, BuildResumeChatPrompt(a, r.ChatHistory, message))
	if err != nil {
		return "", fmt.Errorf("%w: resume chat generation: %v", domain.ErrUpstreamUnavailable, err)
	}
	msg := domain.ChatMessage{UserMessage: message, AIResponse: reply, Timestamp: s.now()}
	if aerr := s.Resumes.AppendChat(ctx, r.ID, msg); aerr != nil {
		lg.Warn("chat history not saved", slog.Any("error", aerr))
	}
	return reply, nil
}

func (s ResumeService) resume(ctx domain.Context, ownerID, referenceID string) (domain.Resume, error) {
	if ownerID == "" || strings.TrimSpace(referenceID) == "" {
		return domain.Resume{}, fmt.Errorf("%w: resume id required", domain.ErrInvalidArgument)
	}
	r, err := s.Resumes.GetByReference(ctx, ownerID, referenceID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Resume{}, fmt.Errorf("%w: resume not found", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Resume{}, fmt.Errorf("op=resume.get: %w", err)
	}
	return r, nil
}

func (s ResumeService) newRef() string {
	if s.NewRef == nil {
		return ulid.Make().String()
	}
	return s.NewRef()
}

// now is truncated to the microsecond precision of timestamptz so a stored
// analysis reads back identical to the one first returned.
func (s ResumeService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return s.Now().UTC().Truncate(time.Microsecond)
}

// toView is the same for a fresh and a cached analysis.
func toView(ref string, a domain.ResumeAnalysis) ResumeAnalysisView {
	return ResumeAnalysisView{ResumeID: ref, Analysis: a.Payload, RewrittenResume: a.RewrittenResume, CreatedAt: a.CreatedAt}
}

// BuildResumeAnalysisPrompt asks for the analysis JSON followed by the rewritten resume.
func BuildResumeAnalysisPrompt(resumeText, jobDescription string) string {
	var b strings.Builder
	b.WriteString("You are an expert recruiter and resume writer. Analyze the resume below.\n\n")
	b.WriteString("First return a single JSON object with exactly these fields:\n")
	b.WriteString(`{"score": <number 0-100>, "summary": "<2-3 sentences>", "strengths": ["..."], "improvements": ["..."], "keywords": ["..."]`)
	if strings.TrimSpace(jobDescription) != "" {
		b.WriteString(`, "job_match": {"score": <number 0-100>, "matching_skills": ["..."], "missing_skills": ["..."], "recommendations": ["..."]}`)
	}
	b.WriteString("}\n\n")
	b.WriteString("After the JSON object, write an improved, ATS-friendly version of the full resume in markdown. Do not wrap the resume in code fences and do not add commentary after it.\n\n")
	if jd := strings.TrimSpace(jobDescription); jd != "" {
		fmt.Fprintf(&b, "Job description:\n%s\n\n", jd)
	}
	fmt.Fprintf(&b, "Resume:\n%s\n", resumeText)
	return b.String()
}

// ParseResumeAnalysis splits a model reply into the analysis object and the
// rewritten resume. Without a JSON object the whole reply is the resume and the
// default payload is used.
func ParseResumeAnalysis(reply string) (domain.AnalysisPayload, string) {
	span, rest, ok := textx.SplitAroundJSON(reply)
	if !ok {
		return domain.DefaultAnalysisPayload(), strings.TrimSpace(reply)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(span), &m); err != nil {
		slog.Debug("resume analysis json invalid", slog.Any("error", err))
		return domain.DefaultAnalysisPayload(), rest
	}
	p := domain.DefaultAnalysisPayload()
	if v, ok := coerceNumber(m["score"]); ok {
		p.Score = v
	}
	if v, ok := m["summary"].(string); ok {
		p.Summary = v
	}
	if v, ok := coercePoints(m["strengths"]); ok {
		p.Strengths = v
	}
	if v, ok := coercePoints(m["improvements"]); ok {
		p.Improvements = v
	}
	if v, ok := coercePoints(m["keywords"]); ok {
		p.Keywords = v
	}
	if jm, ok := m["job_match"].(map[string]any); ok {
		match := &domain.JobMatch{MatchingSkills: []string{}, MissingSkills: []string{}, Recommendations: []string{}}
		if v, ok := coerceNumber(jm["score"]); ok {
			match.Score = v
		}
		if v, ok := coercePoints(jm["matching_skills"]); ok {
			match.MatchingSkills = v
		}
		if v, ok := coercePoints(jm["missing_skills"]); ok {
			match.MissingSkills = v
		}
		if v, ok := coercePoints(jm["recommendations"]); ok {
			match.Recommendations = v
		}
		p.JobMatch = match
	}
	return p, rest
}

// BuildResumeChatPrompt embeds the analysis, the rewritten resume and recent
// exchanges ahead of the user's question.
func BuildResumeChatPrompt(a domain.ResumeAnalysis, history []domain.ChatMessage, message string) string {
	analysisJSON, _ := json.MarshalIndent(a.Payload, "", "  ")
	var b strings.Builder
	b.WriteString("You are a career coach helping a candidate improve their resume. Answer the question using the analysis and improved resume below. Be specific and brief.\n\n")
	fmt.Fprintf(&b, "Analysis:\n%s\n\n", analysisJSON)
	fmt.Fprintf(&b, "Improved resume:\n%s\n\n", a.RewrittenResume)
	if len(history) > chatContextTurns {
		history = history[len(history)-chatContextTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "User: %s\nCoach: %s\n", h.UserMessage, h.AIResponse)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n", message)
	return b.String()
}
