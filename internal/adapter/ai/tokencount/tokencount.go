// Package tokencount measures and trims prompt text by model tokens.
//
// It uses tiktoken-go with the embedded BPE ranks so no network access is
// needed at runtime. Gemini has no public tokenizer; cl100k_base is close
// enough for budgeting resume text.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const defaultEncoding = "cl100k_base"

var loaderOnce sync.Once

// Counter counts and truncates text with a cached encoding. Safe for concurrent use.
type Counter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter creates a counter for model. Unknown models use cl100k_base.
func NewCounter(model string) *Counter {
	loaderOnce.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })
	return &Counter{model: model}
}

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.EncodingForModel(normalizeModelName(c.model))
		if c.err != nil {
			slog.Debug("falling back to cl100k_base encoding", slog.String("model", c.model), slog.Any("error", c.err))
			c.enc, c.err = tiktoken.GetEncoding(defaultEncoding)
		}
	})
	return c.enc, c.err
}

// normalizeModelName maps model ids onto names tiktoken knows.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	case strings.HasPrefix(model, "gpt-4o"):
		return "gpt-4o"
	default:
		return "gpt-4"
	}
}

// Count returns the number of tokens in text. On encoder failure it estimates
// roughly four characters per token.
func (c *Counter) Count(text string) int {
	enc, err := c.encoding()
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most maxTokens tokens. Text within budget is
// returned unchanged. A non-positive budget disables truncation.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}
	enc, err := c.encoding()
	if err != nil {
		if limit := maxTokens * 4; len(text) > limit {
			return text[:limit]
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	slog.Debug("truncating prompt text", slog.Int("tokens", len(tokens)), slog.Int("max_tokens", maxTokens))
	return strings.ToValidUTF8(enc.Decode(tokens[:maxTokens]), "")
}
