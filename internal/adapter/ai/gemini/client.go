// Package gemini implements domain.Generator over the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	obsmetrics "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
)

// contentGenerator is the part of *genai.GenerativeModel the client needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client generates text with one Gemini model. Safe for concurrent use.
type Client struct {
	client  *genai.Client
	model   contentGenerator
	name    string
	breaker *obsmetrics.CircuitBreaker
}

// Options tunes the client.
type Options struct {
	Model              string
	Temperature        float32
	BreakerMaxFailures int
	BreakerCooldown    time.Duration
}

// New creates a Gemini client for opts.Model authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY missing", domain.ErrInvalidArgument)
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("op=gemini.new_client: %w", err)
	}
	m := gc.GenerativeModel(opts.Model)
	if opts.Temperature > 0 {
		m.SetTemperature(opts.Temperature)
	}
	c := newWithModel(m, opts)
	c.client = gc
	return c, nil
}

func newWithModel(m contentGenerator, opts Options) *Client {
	return &Client{
		model:   m,
		name:    opts.Model,
		breaker: obsmetrics.NewCircuitBreaker("gemini", opts.BreakerMaxFailures, opts.BreakerCooldown),
	}
}

// Generate sends prompt as a single request and returns the joined text parts.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	lg := observability.LoggerFromContext(ctx)
	if !c.breaker.Allow() {
		return "", fmt.Errorf("op=gemini.generate: %w: circuit open", domain.ErrUpstreamUnavailable)
	}
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	obsmetrics.ObserveAIRequest("gemini", "generate", start)
	if err != nil {
		c.breaker.Record(err)
		lg.Warn("gemini request failed", slog.String("model", c.name), slog.Duration("elapsed", time.Since(start)), slog.Any("error", err))
		return "", fmt.Errorf("op=gemini.generate: %w", classify(ctx, err))
	}
	c.breaker.Record(nil)
	text, err := textFromResponse(resp)
	if err != nil {
		return "", fmt.Errorf("op=gemini.generate: %w", err)
	}
	return text, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", domain.ErrUpstreamRateLimit, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", domain.ErrUpstreamUnavailable)
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("%w: empty candidate (finish reason %v)", domain.ErrUpstreamUnavailable, cand.FinishReason)
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text parts in response", domain.ErrUpstreamUnavailable)
	}
	return b.String(), nil
}
