package httpserver_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/storage/local"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/config"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/usecase"
)

const testSecret = "test-secret"

var mp4Header = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2mp41")

func token(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func testConfig() config.Config {
	return config.Config{MaxVideoBytes: 1 << 20, MaxUploadMB: 1}
}

// mount wires the /v1 routes the same way the application router does.
func mount(srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.RequestID())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Route("/v1", func(v chi.Router) {
		v.Use(httpserver.Authenticate(httpserver.NewTokenVerifier(testSecret)))
		v.Get("/questions", srv.ListQuestionsHandler())
		v.Get("/questions/next", srv.NextQuestionHandler())
		v.Get("/questions/current", srv.CurrentQuestionHandler())
		v.Post("/questions/reset", srv.ResetQuestionsHandler())
		v.Post("/interviews", srv.SubmitInterviewHandler())
		v.Get("/interviews", srv.InterviewHistoryHandler())
		v.Get("/interviews/{id}", srv.InterviewResultHandler())
		v.Post("/resumes", srv.UploadResumeHandler())
		v.Get("/resumes", srv.ListResumesHandler())
		v.Get("/resumes/{id}/analysis", srv.AnalyzeResumeHandler())
		v.Post("/resumes/{id}/chat", srv.ResumeChatHandler())
	})
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request, sub string) *httptest.ResponseRecorder {
	t.Helper()
	if sub != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, sub))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type filePart struct {
	field, name string
	body        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func newStore(t *testing.T) *local.Store {
	t.Helper()
	s, err := local.New(t.TempDir())
	require.NoError(t, err)
	return s
}

type interviewsFunc func(ctx context.Context, userID string, up usecase.MediaUpload) (usecase.AnalysisOutcome, error)

func (f interviewsFunc) Submit(ctx domain.Context, userID string, up usecase.MediaUpload) (usecase.AnalysisOutcome, error) {
	return f(ctx, userID, up)
}
