package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/storage/local"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/config"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/usecase"
)

// multipartOverhead is slack for part headers and boundaries on top of file limits.
const multipartOverhead = 1 << 20

// Questions is the question rotation used by the handlers.
type Questions interface {
	Questions() []string
	NextQuestion(ctx domain.Context, userID string) (string, bool, error)
	CurrentQuestion(ctx domain.Context, userID string) (*string, error)
	Reset(ctx domain.Context, userID string) error
}

// Interviews analyzes a recorded answer.
type Interviews interface {
	Submit(ctx domain.Context, userID string, up usecase.MediaUpload) (usecase.AnalysisOutcome, error)
}

// History reads persisted interview results.
type History interface {
	Get(ctx domain.Context, userID, id string) (domain.InterviewResult, error)
	ByQuestion(ctx domain.Context, userID, question string) ([]domain.InterviewResult, error)
	List(ctx domain.Context, userID string) ([]domain.InterviewResult, error)
}

// Resumes is the resume pipeline used by the handlers.
type Resumes interface {
	Upload(ctx domain.Context, ownerID string, up usecase.ResumeUpload) (domain.Resume, error)
	List(ctx domain.Context, ownerID string) ([]domain.Resume, error)
	Analyze(ctx domain.Context, ownerID, referenceID string) (usecase.ResumeAnalysisView, error)
	Chat(ctx domain.Context, ownerID, referenceID, message string) (string, error)
}

// MediaStore streams uploads to storage.
type MediaStore interface {
	SaveVideo(src io.Reader, filename string, maxBytes int64) (local.Saved, error)
	SaveResume(src io.Reader, filename string, maxBytes int64) (local.Saved, error)
}

// ReadinessCheck is one named dependency probe.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Questions  Questions
	Interviews Interviews
	History    History
	Resumes    Resumes
	Store      MediaStore
	Checks     []ReadinessCheck
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, q Questions, iv Interviews, h History, rs Resumes, store MediaStore, checks ...ReadinessCheck) *Server {
	return &Server{Cfg: cfg, Questions: q, Interviews: iv, History: h, Resumes: rs, Store: store, Checks: checks}
}

// ListQuestionsHandler returns the question bank.
func (s *Server) ListQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"questions": s.Questions.Questions()})
	}
}

// NextQuestionHandler serves a question the user has not been asked yet.
func (s *Server) NextQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, exhausted, err := s.Questions.NextQuestion(r.Context(), UserIDFrom(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if exhausted {
			writeJSON(w, http.StatusOK, map[string]any{"question": nil, "exhausted": true})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q, "exhausted": false})
	}
}

// CurrentQuestionHandler returns the question most recently served, or null.
func (s *Server) CurrentQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.Questions.CurrentQuestion(r.Context(), UserIDFrom(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q})
	}
}

// ResetQuestionsHandler clears the user's rotation.
func (s *Server) ResetQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Questions.Reset(r.Context(), UserIDFrom(r.Context())); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

// SubmitInterviewHandler receives a recorded answer (multipart field "video")
// and runs it through analysis. The recording is streamed to disk, never buffered.
func (s *Server) SubmitInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := s.Cfg.MaxVideoBytes
		if maxBytes <= 0 {
			maxBytes = domain.MaxVideoBytes
		}
		rc := http.NewResponseController(w)
		s.extendDeadlines(r, rc, s.uploadReadTimeout(), s.uploadReadTimeout()+s.analysisWriteTimeout())
		mr, err := multipartReader(w, r, maxBytes+multipartOverhead)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var saved *local.Saved
		err = eachPart(mr, func(p *multipart.Part) error {
			if p.FormName() != "video" || saved != nil {
				return nil
			}
			sv, err := s.Store.SaveVideo(p, p.FileName(), maxBytes)
			if err != nil {
				return err
			}
			saved = &sv
			return nil
		})
		if err != nil {
			removeSaved(r, saved)
			writeError(w, r, err, map[string]any{"field": "video", "max_bytes": maxBytes})
			return
		}
		if saved == nil {
			writeError(w, r, fmt.Errorf("%w: video file required", domain.ErrInvalidArgument), map[string]string{"field": "video"})
			return
		}
		// Body fully read: the remaining budget is the remote wait alone.
		s.extendDeadlines(r, rc, 0, s.analysisWriteTimeout())
		out, err := s.Interviews.Submit(r.Context(), UserIDFrom(r.Context()), usecase.MediaUpload{
			Path:     saved.Path,
			Filename: saved.Filename,
			Size:     saved.Size,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// extendDeadlines moves the connection deadlines for the long-running interview
// route past the server-wide timeouts. A zero duration leaves that side untouched.
// Writers that do not support deadlines (e.g. recorders in tests) are skipped.
func (s *Server) extendDeadlines(r *http.Request, rc *http.ResponseController, read, write time.Duration) {
	now := time.Now()
	if read > 0 {
		if err := rc.SetReadDeadline(now.Add(read)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			LoggerFrom(r).Warn("extend read deadline", slog.Any("error", err))
		}
	}
	if write > 0 {
		if err := rc.SetWriteDeadline(now.Add(write)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			LoggerFrom(r).Warn("extend write deadline", slog.Any("error", err))
		}
	}
}

func (s *Server) uploadReadTimeout() time.Duration {
	if s.Cfg.UploadReadTimeout > 0 {
		return s.Cfg.UploadReadTimeout
	}
	return 30 * time.Minute
}

// analysisWriteTimeout covers the remote indexing wait plus generation and transcription.
func (s *Server) analysisWriteTimeout() time.Duration {
	wait := s.Cfg.TwelveLabsMaxWait
	if wait <= 0 {
		wait = 30 * time.Minute
	}
	return wait + 5*time.Minute
}

// InterviewHistoryHandler lists results newest first, optionally for one question.
func (s *Server) InterviewHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFrom(r.Context())
		var (
			rs  []domain.InterviewResult
			err error
		)
		if q := SanitizeString(r.URL.Query().Get("question"), maxQuestionLen); q != "" {
			rs, err = s.History.ByQuestion(r.Context(), userID, q)
		} else {
			rs, err = s.History.List(r.Context(), userID)
		}
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": rs})
	}
}

// InterviewResultHandler returns one stored result of the caller.
func (s *Server) InterviewResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.History.Get(r.Context(), UserIDFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type resumeView struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	MIME           string    `json:"mime"`
	Size           int64     `json:"size"`
	JobDescription *string   `json:"job_description"`
	UploadedAt     time.Time `json:"uploaded_at"`
	Analyzed       bool      `json:"analyzed"`
	ChatMessages   int       `json:"chat_messages"`
}

func toResumeView(r domain.Resume) resumeView {
	return resumeView{
		ID:             r.ReferenceID,
		Filename:       r.Filename,
		MIME:           r.MIME,
		Size:           r.Size,
		JobDescription: r.JobDescription,
		UploadedAt:     r.UploadedAt,
		Analyzed:       r.Analyzed,
		ChatMessages:   len(r.ChatHistory),
	}
}

// UploadResumeHandler stores a resume (multipart field "resume") with an
// optional "job_description" field.
func (s *Server) UploadResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := s.Cfg.MaxUploadBytes()
		mr, err := multipartReader(w, r, maxBytes+multipartOverhead)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var (
			saved *local.Saved
			jd    string
		)
		err = eachPart(mr, func(p *multipart.Part) error {
			switch p.FormName() {
			case "job_description":
				b, err := io.ReadAll(io.LimitReader(p, maxJobDescriptionLen+1))
				if err != nil {
					return err
				}
				if len(b) > maxJobDescriptionLen {
					return fmt.Errorf("%w: job_description exceeds %d bytes", domain.ErrInvalidArgument, maxJobDescriptionLen)
				}
				jd = SanitizeString(string(b), maxJobDescriptionLen)
			case "resume":
				if saved != nil {
					return nil
				}
				sv, err := s.Store.SaveResume(p, p.FileName(), maxBytes)
				if err != nil {
					return err
				}
				saved = &sv
			}
			return nil
		})
		if err != nil {
			removeSaved(r, saved)
			writeError(w, r, err, map[string]any{"field": "resume", "max_mb": s.Cfg.MaxUploadMB})
			return
		}
		if saved == nil {
			writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "resume"})
			return
		}
		res, err := s.Resumes.Upload(r.Context(), UserIDFrom(r.Context()), usecase.ResumeUpload{
			Path:           saved.Path,
			Filename:       saved.Filename,
			MIME:           saved.MIME,
			Size:           saved.Size,
			JobDescription: jd,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toResumeView(res))
	}
}

// ListResumesHandler lists the caller's resumes.
func (s *Server) ListResumesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := s.Resumes.List(r.Context(), UserIDFrom(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]resumeView, 0, len(rs))
		for _, res := range rs {
			out = append(out, toResumeView(res))
		}
		writeJSON(w, http.StatusOK, map[string]any{"resumes": out})
	}
}

// AnalyzeResumeHandler returns the resume analysis, computing it on first request.
func (s *Server) AnalyzeResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := chi.URLParam(r, "id")
		if details, err := validate(resumeRef{ID: ref}); err != nil {
			writeError(w, r, err, details)
			return
		}
		view, err := s.Resumes.Analyze(r.Context(), UserIDFrom(r.Context()), ref)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// ResumeChatHandler answers a question about an analyzed resume.
func (s *Server) ResumeChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := chi.URLParam(r, "id")
		if details, err := validate(resumeRef{ID: ref}); err != nil {
			writeError(w, r, err, details)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		var req chatRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		req.Message = SanitizeString(req.Message, 0)
		if details, err := validate(req); err != nil {
			writeError(w, r, err, details)
			return
		}
		reply, err := s.Resumes.Chat(r.Context(), UserIDFrom(r.Context()), ref, req.Message)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	}
}

// ReadyzHandler probes every configured dependency.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		ok := true
		for _, c := range s.Checks {
			if c.Check == nil {
				continue
			}
			if err := c.Check(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: c.Name, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

func multipartReader(w http.ResponseWriter, r *http.Request, limit int64) (*multipart.Reader, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument)
	}
	if r.ContentLength > limit {
		return nil, fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrPayloadTooLarge, limit)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return mr, nil
}

// eachPart calls fn for every part, closing each one afterwards.
func eachPart(mr *multipart.Reader, fn func(*multipart.Part) error) error {
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return fmt.Errorf("%w: limit is %d bytes", domain.ErrPayloadTooLarge, mbe.Limit)
			}
			return fmt.Errorf("%w: malformed multipart body: %v", domain.ErrInvalidArgument, err)
		}
		ferr := fn(p)
		_ = p.Close()
		if ferr != nil {
			return ferr
		}
	}
}

func removeSaved(r *http.Request, saved *local.Saved) {
	if saved == nil {
		return
	}
	if err := os.Remove(saved.Path); err != nil && !os.IsNotExist(err) {
		observability.LoggerFromContext(r.Context()).Warn("upload cleanup failed", slog.String("path", saved.Path), slog.Any("error", err))
	}
}
