// Package app assembles the HTTP router and dependency readiness checks.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/config"
)

// shortRouteTimeout bounds every route except interview submission, which
// holds the connection through remote video indexing.
const shortRouteTimeout = 90 * time.Second

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server, verifier *httpserver.TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v chi.Router) {
		v.Use(httpserver.Authenticate(verifier))

		v.Group(func(g chi.Router) {
			g.Use(httpserver.TimeoutMiddleware(shortRouteTimeout))
			g.Get("/questions", srv.ListQuestionsHandler())
			g.Get("/questions/current", srv.CurrentQuestionHandler())
			g.Get("/interviews", srv.InterviewHistoryHandler())
			g.Get("/interviews/{id}", srv.InterviewResultHandler())
			g.Get("/resumes", srv.ListResumesHandler())

			g.Group(func(m chi.Router) {
				m.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
				m.Get("/questions/next", srv.NextQuestionHandler())
				m.Post("/questions/reset", srv.ResetQuestionsHandler())
				m.Post("/resumes", srv.UploadResumeHandler())
				m.Get("/resumes/{id}/analysis", srv.AnalyzeResumeHandler())
				m.Post("/resumes/{id}/chat", srv.ResumeChatHandler())
			})
		})

		// No timeout: the pipeline waits for the remote index.
		v.With(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute)).
			Post("/interviews", srv.SubmitInterviewHandler())
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
