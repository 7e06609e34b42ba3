// Package twelvelabs implements domain.VideoAnalyzer over the TwelveLabs REST API (v1.3).
//
// A recording is uploaded as an indexing task, the task is polled until it
// reaches a terminal status, and text is then generated against the indexed
// video id.
package twelvelabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	obsmetrics "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
)

// Config configures the client. Zero durations fall back to defaults.
type Config struct {
	BaseURL      string
	APIKey       string
	IndexID      string
	PollInterval time.Duration
	MaxWait      time.Duration
	// Backoff builds the retry policy for one request; nil uses exponential defaults.
	Backoff    func() backoff.BackOff
	HTTPClient *http.Client
	Breaker    *obsmetrics.CircuitBreaker
}

// Client talks to TwelveLabs. Safe for concurrent use.
type Client struct {
	cfg Config
	hc  *http.Client
}

// New constructs a client from cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twelvelabs.io/v1.3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 30 * time.Minute
	}
	if cfg.Backoff == nil {
		cfg.Backoff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	hc := cfg.HTTPClient
	if hc == nil {
		// No client timeout: uploads of large recordings are bounded by ctx instead.
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{cfg: cfg, hc: hc}
}

type taskResponse struct {
	ID      string `json:"_id"`
	Status  string `json:"status"`
	VideoID string `json:"video_id"`
}

// statusError is a non-2xx response.
type statusError struct {
	op   string
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("twelvelabs %s status %d: %s", e.op, e.code, e.body)
}

// Submit uploads the recording at mediaPath as a new indexing task.
func (c *Client) Submit(ctx context.Context, mediaPath string) (domain.VideoJob, error) {
	if c.cfg.APIKey == "" || c.cfg.IndexID == "" {
		return domain.VideoJob{}, fmt.Errorf("op=twelvelabs.submit: %w: api key and index id required", domain.ErrUpstreamUnavailable)
	}
	var out taskResponse
	err := c.do(ctx, "create_task", func(ctx context.Context) (*http.Request, error) {
		return c.uploadRequest(ctx, mediaPath)
	}, &out)
	if err != nil {
		return domain.VideoJob{}, fmt.Errorf("op=twelvelabs.submit: %w", err)
	}
	if out.ID == "" {
		return domain.VideoJob{}, fmt.Errorf("op=twelvelabs.submit: %w: task id missing", domain.ErrUpstreamUnavailable)
	}
	observability.LoggerFromContext(ctx).Info("indexing task created", slog.String("task_id", out.ID))
	return domain.VideoJob{ID: out.ID, VideoID: out.VideoID, Status: domain.VideoJobPending}, nil
}

// uploadRequest streams the file as multipart form data so the recording is
// never held in memory.
func (c *Client) uploadRequest(ctx context.Context, mediaPath string) (*http.Request, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer func() { _ = f.Close() }()
		err := mw.WriteField("index_id", c.cfg.IndexID)
		if err == nil {
			var part io.Writer
			part, err = mw.CreateFormFile("video_file", filepath.Base(mediaPath))
			if err == nil {
				_, err = io.Copy(part, f)
			}
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/tasks", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// AwaitTerminal polls the task until it is ready or failed, bounded by MaxWait.
func (c *Client) AwaitTerminal(ctx context.Context, job domain.VideoJob) (domain.VideoJob, error) {
	lg := observability.LoggerFromContext(ctx).With(slog.String("task_id", job.ID))
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	last := ""
	for {
		var out taskResponse
		err := c.do(ctx, "get_task", func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/tasks/"+job.ID, nil)
		}, &out)
		if err != nil {
			return job, fmt.Errorf("op=twelvelabs.await: %w", err)
		}
		if out.Status != last {
			lg.Info("indexing task status", slog.String("status", out.Status))
			last = out.Status
		}
		if out.VideoID != "" {
			job.VideoID = out.VideoID
		}
		switch out.Status {
		case "ready":
			job.Status = domain.VideoJobReady
			if job.VideoID == "" {
				return job, fmt.Errorf("op=twelvelabs.await: %w: ready task without video id", domain.ErrUpstreamUnavailable)
			}
			return job, nil
		case "failed":
			job.Status = domain.VideoJobFailed
			return job, fmt.Errorf("op=twelvelabs.await: %w: indexing failed with status %s", domain.ErrUpstreamUnavailable, out.Status)
		}
		select {
		case <-ctx.Done():
			return job, fmt.Errorf("op=twelvelabs.await: %w: task still %s", domain.ErrUpstreamTimeout, last)
		case <-ticker.C:
		}
	}
}

// GenerateText runs prompt against an indexed video and returns the text data.
func (c *Client) GenerateText(ctx context.Context, videoID, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{"video_id": videoID, "prompt": prompt, "stream": false})
	if err != nil {
		return "", fmt.Errorf("op=twelvelabs.generate: %w", err)
	}
	var out struct {
		ID   string `json:"id"`
		Data string `json:"data"`
	}
	err = c.do(ctx, "generate", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &out)
	if err != nil {
		return "", fmt.Errorf("op=twelvelabs.generate: %w", err)
	}
	return out.Data, nil
}

// Ping verifies the key can read the configured index.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" || c.cfg.IndexID == "" {
		return errors.New("twelvelabs not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/indexes/"+c.cfg.IndexID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("op=twelvelabs.ping: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("op=twelvelabs.ping: status %d", resp.StatusCode)
	}
	return nil
}

// do executes one API call with retries on 429, 5xx and transport errors.
// 4xx responses are permanent.
func (c *Client) do(ctx context.Context, op string, build func(context.Context) (*http.Request, error), out any) error {
	if !c.cfg.Breaker.Allow() {
		return fmt.Errorf("%w: circuit open", domain.ErrUpstreamUnavailable)
	}
	attempt := func() error {
		start := time.Now()
		req, err := build(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("x-api-key", c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")
		resp, err := c.hc.Do(req)
		obsmetrics.ObserveAIRequest("twelvelabs", op, start)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet := string(b)
			if len(snippet) > 512 {
				snippet = snippet[:512]
			}
			se := &statusError{op: op, code: resp.StatusCode, body: snippet}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				slog.Warn("twelvelabs retryable status", slog.String("op", op), slog.Int("status", resp.StatusCode))
				return se
			}
			return backoff.Permanent(se)
		}
		if err := json.Unmarshal(b, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", op, err))
		}
		return nil
	}
	err := backoff.Retry(attempt, backoff.WithContext(c.cfg.Backoff(), ctx))
	c.cfg.Breaker.Record(breakerErr(err))
	if err != nil {
		return classify(ctx, err)
	}
	return nil
}

// breakerErr ignores client errors so a bad upload does not trip the breaker.
func breakerErr(err error) error {
	var se *statusError
	if errors.As(err, &se) && se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests {
		return nil
	}
	return err
}

func classify(ctx context.Context, err error) error {
	var se *statusError
	switch {
	case errors.As(err, &se):
		switch {
		case se.code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrUpstreamRateLimit, se)
		case se.code == http.StatusBadRequest || se.code == http.StatusUnprocessableEntity || se.code == http.StatusRequestEntityTooLarge:
			return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, se)
		default:
			return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, se)
		}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
}
