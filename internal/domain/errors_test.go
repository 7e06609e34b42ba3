package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrInvalidArgument", ErrInvalidArgument, "invalid argument"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrConflict", ErrConflict, "conflict"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
		{"ErrUpstreamTimeout", ErrUpstreamTimeout, "upstream timeout"},
		{"ErrUpstreamRateLimit", ErrUpstreamRateLimit, "upstream rate limit"},
		{"ErrUpstreamUnavailable", ErrUpstreamUnavailable, "upstream unavailable"},
		{"ErrInternal", ErrInternal, "internal error"},
		{"ErrPayloadTooLarge", ErrPayloadTooLarge, "payload too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %s to be %q, got %q", tt.name, tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorIs_Wrapped(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"wrapped invalid argument", fmt.Errorf("%w: empty filename", ErrInvalidArgument), ErrInvalidArgument, true},
		{"op wrapped not found", fmt.Errorf("op=resume.get: %w", ErrNotFound), ErrNotFound, true},
		{"upstream unavailable is not timeout", ErrUpstreamUnavailable, ErrUpstreamTimeout, false},
		{"not found is not conflict", ErrNotFound, ErrConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errors.Is(tt.err, tt.target) != tt.expected {
				t.Errorf("Expected errors.Is(%v, %v) to be %v", tt.err, tt.target, tt.expected)
			}
		})
	}
}
