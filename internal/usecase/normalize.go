package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/pkg/textx"
)

// numericString accepts digits with at most one decimal point, e.g. "7", "7.5", ".5", "7.".
var numericString = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// NormalizeScores turns an untrusted analysis payload into a ScoreRecord.
// raw may be text with embedded JSON, raw JSON bytes or an already decoded map.
// It never fails: unparseable input yields the default record, and a panic
// part-way through yields whatever was filled in before it.
func NormalizeScores(raw any) (rec domain.ScoreRecord) {
	rec = domain.DefaultScoreRecord()
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("score normalization aborted", slog.Any("panic", r))
		}
	}()

	m, ok := scoreSource(raw)
	if !ok {
		return rec
	}
	numeric := []struct {
		key string
		dst *float64
	}{
		{"confidence", &rec.Confidence},
		{"clarity", &rec.Clarity},
		{"speech_rate", &rec.SpeechRate},
		{"eye_contact", &rec.EyeContact},
		{"body_language", &rec.BodyLanguage},
		{"voice_tone", &rec.VoiceTone},
	}
	for _, f := range numeric {
		if v, present := m[f.key]; present {
			if n, ok := coerceNumber(v); ok {
				*f.dst = n
			}
		}
	}
	if v, present := m["imp_points"]; present {
		if pts, ok := coercePoints(v); ok {
			rec.ImpPoints = pts
		}
	}
	return rec
}

func scoreSource(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, v != nil
	case string:
		return decodeObject(v)
	case []byte:
		return decodeObject(string(v))
	case json.RawMessage:
		return decodeObject(string(v))
	default:
		return nil, false
	}
}

// decodeObject parses the greedy {...} span of s, or all of s when it has none.
func decodeObject(s string) (map[string]any, bool) {
	candidate := s
	if span, ok := textx.CarveJSON(s); ok {
		candidate = span
	}
	var decoded any
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		slog.Debug("analysis payload is not json", slog.Any("error", err), slog.Int("len", len(s)))
		return nil, false
	}
	m, ok := decoded.(map[string]any)
	return m, ok
}

func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if n == "" || n == "." || !numericString.MatchString(n) {
			return 0, false
		}
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coercePoints(v any) ([]string, bool) {
	switch pts := v.(type) {
	case []string:
		return append([]string{}, pts...), true
	case []any:
		out := make([]string, 0, len(pts))
		for _, p := range pts {
			switch s := p.(type) {
			case nil:
				continue
			case string:
				out = append(out, s)
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out, true
	default:
		return nil, false
	}
}
