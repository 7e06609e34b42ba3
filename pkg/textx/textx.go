// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// CarveJSON returns the greedy span from the first '{' to the last '}' of s.
// The span is not validated; ok is false when no such span exists.
func CarveJSON(s string) (span string, ok bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return "", false
	}
	return s[start : end+1], true
}

// SplitAroundJSON carves the JSON span out of s and returns it with the
// remaining text (prefix and suffix joined, trimmed).
func SplitAroundJSON(s string) (span, rest string, ok bool) {
	span, ok = CarveJSON(s)
	if !ok {
		return "", strings.TrimSpace(s), false
	}
	start := strings.Index(s, span)
	rest = strings.TrimSpace(StripCodeFences(s[:start]) + "\n" + StripCodeFences(s[start+len(span):]))
	return span, rest, true
}

// StripCodeFences drops markdown code fence lines (```json, ```).
func StripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "```") {
			continue
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
