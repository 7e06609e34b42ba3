// Package textx contains tests for the text utilities.
package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestCarveJSON(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "Here you go: {\"a\":1} thanks", `{"a":1}`, true},
		{"greedy spans two objects", `x {"a":1} y {"b":2} z`, `{"a":1} y {"b":2}`, true},
		{"fenced", "```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, true},
		{"no brace", "nothing here", "", false},
		{"close before open", "} oops {", "", false},
		{"open only", "{ never closed", "", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := CarveJSON(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitAroundJSON(t *testing.T) {
	span, rest, ok := SplitAroundJSON("```json\n{\"score\":7}\n```\n# Jane Doe\nEngineer")
	assert.True(t, ok)
	assert.Equal(t, `{"score":7}`, span)
	assert.Equal(t, "# Jane Doe\nEngineer", rest)

	_, rest, ok = SplitAroundJSON("  just text  ")
	assert.False(t, ok)
	assert.Equal(t, "just text", rest)
}
