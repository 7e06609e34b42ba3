package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120, 600},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by pipeline and terminal state",
		},
		[]string{"pipeline", "outcome"},
	)
	PipelineInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_in_flight",
			Help: "Number of pipeline runs currently executing",
		},
		[]string{"pipeline"},
	)
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Time spent reaching each pipeline stage from the previous one",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		},
		[]string{"pipeline", "stage"},
	)

	// Score distributions
	InterviewScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_score",
			Help:    "Distribution of normalized interview scores by dimension",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"dimension"},
	)
	CircuitBreakerStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state by upstream (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
	ResumeScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resume_analysis_score",
			Help:    "Distribution of resume analysis scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineInFlight)
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(InterviewScoreHistogram)
	prometheus.MustRegister(ResumeScoreHistogram)
	prometheus.MustRegister(CircuitBreakerStateGauge)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAIRequest records one outbound AI call.
func ObserveAIRequest(provider, operation string, start time.Time) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

// StartPipeline marks a pipeline run as in flight.
func StartPipeline(pipeline string) {
	PipelineInFlight.WithLabelValues(pipeline).Inc()
}

// FinishPipeline records the terminal outcome of a run started with StartPipeline.
func FinishPipeline(pipeline, outcome string) {
	PipelineInFlight.WithLabelValues(pipeline).Dec()
	PipelineRunsTotal.WithLabelValues(pipeline, outcome).Inc()
}

// ObserveStage records how long a pipeline took to reach stage.
func ObserveStage(pipeline, stage string, d time.Duration) {
	PipelineStageDuration.WithLabelValues(pipeline, stage).Observe(d.Seconds())
}

// ObserveInterviewScores records the normalized score dimensions of a finished analysis.
func ObserveInterviewScores(dims map[string]float64) {
	for k, v := range dims {
		InterviewScoreHistogram.WithLabelValues(k).Observe(v)
	}
}

// ObserveResumeScore records a resume analysis score.
func ObserveResumeScore(score float64) {
	if score >= 0 && score <= 100 {
		ResumeScoreHistogram.Observe(score)
	}
}
