package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	obsmetrics "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
)

// AnalysisState is a stage of one interview submission.
type AnalysisState string

const (
	StateReceived              AnalysisState = "RECEIVED"
	StateRemoteAnalysisPending AnalysisState = "REMOTE_ANALYSIS_PENDING"
	StateRemoteAnalysisDone    AnalysisState = "REMOTE_ANALYSIS_DONE"
	StateNormalized            AnalysisState = "NORMALIZED"
	StateTranscribed           AnalysisState = "TRANSCRIBED"
	StateEvaluated             AnalysisState = "EVALUATED"
	StatePersisted             AnalysisState = "PERSISTED"
	StateFailed                AnalysisState = "FAILED"
)

const interviewPipeline = "interview"

// InterviewAnalysisPrompt asks the video model for the score JSON.
const InterviewAnalysisPrompt = `You're an interviewer. Analyze the video clip of the interview answer.
Rules for scoring:
- If no face is detected, give less than 5 for all categories.
- If no voice is detected, set "clarity", "speech_rate" and "voice_tone" to 1 and add "No speech detected" to "imp_points".
- If both face and voice are missing, return only this JSON:
{
    "error": "No valid face or speech detected in the video."
}

Otherwise provide the response in the following JSON format with numerical values from 1-10:
{
    "confidence": <number>,
    "clarity": <number>,
    "speech_rate": <number>,
    "eye_contact": <number>,
    "body_language": <number>,
    "voice_tone": <number>,
    "imp_points": [<list of important points as strings>]
}`

// Transcriber is satisfied by TranscriptService.
type Transcriber interface {
	Extract(ctx domain.Context, mediaPath string) string
}

// Evaluator is satisfied by EvaluationService.
type Evaluator interface {
	Compose(ctx domain.Context, question, transcript string) string
}

// MediaUpload is a received recording already written to local storage.
// The pipeline owns Path and removes it before returning.
type MediaUpload struct {
	Path     string
	Filename string
	Size     int64
}

// AnalysisOutcome is the composite result returned to the caller.
type AnalysisOutcome struct {
	ResultID            string             `json:"result_id,omitempty"`
	VideoID             string             `json:"video_id"`
	Question            string             `json:"question"`
	Scores              domain.ScoreRecord `json:"scores"`
	Transcript          string             `json:"transcript"`
	NarrativeEvaluation string             `json:"gemini_analysis"`
	States              []AnalysisState    `json:"states"`
	Warnings            []string           `json:"warnings,omitempty"`
}

// AnalysisService runs an interview recording through remote analysis,
// normalization, transcription, evaluation and persistence.
type AnalysisService struct {
	Progress    domain.ProgressRepository
	Video       domain.VideoAnalyzer
	Transcripts Transcriber
	Evaluator   Evaluator
	Results     domain.ResultRepository
	Events      domain.EventPublisher
	MaxBytes    int64
	Now         func() time.Time
}

// NewAnalysisService constructs an AnalysisService with the 2 GiB default limit.
func NewAnalysisService(p domain.ProgressRepository, v domain.VideoAnalyzer, t Transcriber, e Evaluator, r domain.ResultRepository, ev domain.EventPublisher) AnalysisService {
	return AnalysisService{Progress: p, Video: v, Transcripts: t, Evaluator: e, Results: r, Events: ev, MaxBytes: domain.MaxVideoBytes, Now: time.Now}
}

type stageTracker struct {
	lg     *slog.Logger
	states []AnalysisState
	last   time.Time
}

func (t *stageTracker) enter(s AnalysisState) {
	now := time.Now()
	if len(t.states) > 0 {
		obsmetrics.ObserveStage(interviewPipeline, string(s), now.Sub(t.last))
	}
	t.last = now
	t.states = append(t.states, s)
	t.lg.Info("analysis stage", slog.String("state", string(s)))
}

// Submit analyzes one recorded answer to the user's current question.
// Precondition failures are reported before any remote call. A persistence
// failure does not fail the call; it is reported in Warnings.
func (s AnalysisService) Submit(ctx domain.Context, userID string, up MediaUpload) (out AnalysisOutcome, err error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("user_id", userID), slog.String("filename", up.Filename))
	defer removeMedia(lg, up.Path)

	tr := &stageTracker{lg: lg}
	obsmetrics.StartPipeline(interviewPipeline)
	defer func() {
		if err != nil {
			tr.enter(StateFailed)
			lg.Warn("analysis failed", slog.Any("error", err))
		}
		out.States = tr.states
		obsmetrics.FinishPipeline(interviewPipeline, string(tr.states[len(tr.states)-1]))
	}()
	tr.enter(StateReceived)

	question, err := s.precheck(ctx, userID, up)
	if err != nil {
		return out, err
	}
	out.Question = question

	tr.enter(StateRemoteAnalysisPending)
	job, err := s.Video.Submit(ctx, up.Path)
	if err != nil {
		return out, upstreamErr("op=analysis.submit", err)
	}
	lg.Info("video submitted", slog.String("task_id", job.ID))
	job, err = s.Video.AwaitTerminal(ctx, job)
	if err != nil {
		return out, upstreamErr("op=analysis.await", err)
	}
	if job.Status != domain.VideoJobReady {
		return out, fmt.Errorf("%w: indexing ended with status %s", domain.ErrUpstreamUnavailable, job.Status)
	}
	out.VideoID = job.VideoID
	raw, err := s.Video.GenerateText(ctx, job.VideoID, InterviewAnalysisPrompt)
	if err != nil {
		return out, upstreamErr("op=analysis.generate", err)
	}
	tr.enter(StateRemoteAnalysisDone)

	out.Scores = NormalizeScores(raw)
	tr.enter(StateNormalized)

	if s.Transcripts != nil {
		out.Transcript = s.Transcripts.Extract(ctx, up.Path)
	}
	tr.enter(StateTranscribed)

	if s.Evaluator != nil {
		out.NarrativeEvaluation = s.Evaluator.Compose(ctx, question, out.Transcript)
	} else {
		out.NarrativeEvaluation = EvaluationFailedText
	}
	tr.enter(StateEvaluated)
	obsmetrics.ObserveInterviewScores(scoreDimensions(out.Scores))

	result := domain.InterviewResult{
		UserID:              userID,
		VideoReferenceID:    out.VideoID,
		Question:            question,
		Scores:              out.Scores,
		Transcript:          out.Transcript,
		NarrativeEvaluation: out.NarrativeEvaluation,
		CreatedAt:           s.now(),
	}
	id, perr := s.Results.Insert(ctx, result)
	if perr != nil {
		lg.Error("result not persisted", slog.Any("error", perr))
		out.Warnings = append(out.Warnings, "result not saved: "+perr.Error())
		return out, nil
	}
	out.ResultID = id
	tr.enter(StatePersisted)
	s.publish(ctx, lg, domain.Event{
		Type:       domain.EventInterviewResultRecorded,
		UserID:     userID,
		EntityID:   id,
		OccurredAt: result.CreatedAt,
		Attributes: map[string]any{"question": question, "video_id": out.VideoID},
	})
	return out, nil
}

func (s AnalysisService) precheck(ctx domain.Context, userID string, up MediaUpload) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	if up.Path == "" {
		return "", fmt.Errorf("%w: no video file provided", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(up.Filename) == "" {
		return "", fmt.Errorf("%w: no video file selected", domain.ErrInvalidArgument)
	}
	limit := s.MaxBytes
	if limit <= 0 {
		limit = domain.MaxVideoBytes
	}
	if up.Size > limit {
		return "", fmt.Errorf("%w: video file size exceeds %d bytes", domain.ErrInvalidArgument, limit)
	}
	p, err := s.Progress.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && p.CurrentQuestion == nil) {
		return "", fmt.Errorf("%w: no current question; request a question first", domain.ErrInvalidArgument)
	}
	if err != nil {
		return "", fmt.Errorf("op=analysis.current_question: %w", err)
	}
	return *p.CurrentQuestion, nil
}

func (s AnalysisService) publish(ctx domain.Context, lg *slog.Logger, e domain.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		lg.Warn("event publish failed", slog.String("type", e.Type), slog.Any("error", err))
	}
}

func (s AnalysisService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return s.Now().UTC().Truncate(time.Microsecond)
}

// upstreamErr keeps an adapter's domain classification and defaults to unavailable.
func upstreamErr(op string, err error) error {
	for _, known := range []error{domain.ErrUpstreamTimeout, domain.ErrUpstreamRateLimit, domain.ErrUpstreamUnavailable, domain.ErrInvalidArgument} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstreamUnavailable, err)
}

func removeMedia(lg *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		lg.Warn("media cleanup failed", slog.String("path", path), slog.Any("error", err))
	}
}

func scoreDimensions(r domain.ScoreRecord) map[string]float64 {
	return map[string]float64{
		"confidence":    r.Confidence,
		"clarity":       r.Clarity,
		"speech_rate":   r.SpeechRate,
		"eye_contact":   r.EyeContact,
		"body_language": r.BodyLanguage,
		"voice_tone":    r.VoiceTone,
	}
}
