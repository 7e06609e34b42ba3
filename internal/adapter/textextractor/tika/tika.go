// Package tika extracts resume text through an Apache Tika server.
//
// Plain text files are read directly; PDF and Word documents are sent to
// PUT /tika with Accept: text/plain. See https://tika.apache.org/server/.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	obsmetrics "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/pkg/textx"
)

const defaultBaseURL = "http://localhost:9998"

// Client implements domain.TextExtractor. Files must live under root.
type Client struct {
	baseURL    string
	root       string
	httpClient *http.Client
	breaker    *obsmetrics.CircuitBreaker
}

// New constructs a Tika client that only reads files under root.
// An empty root disables the path check.
func New(baseURL, root string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = filepath.Clean(abs)
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		root:       root,
		httpClient: &http.Client{Timeout: 30 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		breaker:    obsmetrics.NewCircuitBreaker("tika", 5, 30*time.Second),
	}
}

// ExtractPath returns the text of the file at path. fileName picks the content type.
func (c *Client) ExtractPath(ctx context.Context, fileName, path string) (string, error) {
	openPath, err := c.resolve(path)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	b, err := os.ReadFile(openPath)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	if strings.EqualFold(filepath.Ext(fileName), ".txt") {
		return normalize(string(b)), nil
	}
	if !c.breaker.Allow() {
		return "", fmt.Errorf("op=tika.extract: %w: circuit open", domain.ErrUpstreamUnavailable)
	}
	text, err := c.put(ctx, fileName, b)
	c.breaker.Record(err)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	return text, nil
}

func (c *Client) put(ctx context.Context, fileName string, body []byte) (string, error) {
	start := time.Now()
	defer obsmetrics.ObserveAIRequest("tika", "extract", start)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/tika", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	if ct := contentTypeFromExt(filepath.Ext(fileName)); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("tika status %d", resp.StatusCode)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return normalize(string(out)), nil
}

// Ping checks the server answers GET /version.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=tika.ping: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("op=tika.ping: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if c.root == "" {
		return abs, nil
	}
	rel, err := filepath.Rel(c.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: disallowed path %s", domain.ErrInvalidArgument, abs)
	}
	return abs, nil
}

// normalize sanitizes control characters and collapses runs of spaces while
// keeping line structure, which the resume rewrite relies on.
func normalize(s string) string {
	lines := strings.Split(textx.SanitizeText(s), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, ln := range lines {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func contentTypeFromExt(ext string) string {
	switch ext = strings.ToLower(ext); ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	case "":
		return ""
	default:
		return mime.TypeByExtension(ext)
	}
}
