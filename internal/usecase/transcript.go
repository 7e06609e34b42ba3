package usecase

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
)

// TranscriptService produces a best-effort transcript of a recording.
type TranscriptService struct {
	Audio  domain.AudioExtractor
	Speech domain.SpeechRecognizer
	// TempDir holds the intermediate WAV; empty means os.TempDir().
	TempDir string
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(a domain.AudioExtractor, s domain.SpeechRecognizer, tempDir string) TranscriptService {
	return TranscriptService{Audio: a, Speech: s, TempDir: tempDir}
}

// Extract returns the recognized text of mediaPath or "" on any failure.
// The temporary audio file never outlives the call.
func (s TranscriptService) Extract(ctx domain.Context, mediaPath string) string {
	lg := observability.LoggerFromContext(ctx)
	if s.Audio == nil || s.Speech == nil {
		lg.Warn("transcript capability not configured")
		return ""
	}

	tmp, err := os.CreateTemp(s.TempDir, "answer-*.wav")
	if err != nil {
		lg.Warn("transcript temp file", slog.Any("error", err))
		return ""
	}
	wavPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if rmErr := os.Remove(wavPath); rmErr != nil && !os.IsNotExist(rmErr) {
			lg.Warn("transcript temp cleanup", slog.String("path", wavPath), slog.Any("error", rmErr))
		}
	}()

	if err := s.Audio.ExtractAudio(ctx, mediaPath, wavPath); err != nil {
		lg.Warn("audio extraction failed", slog.Any("error", err))
		return ""
	}
	// #nosec G304 -- path created above
	audio, err := os.ReadFile(wavPath)
	if err != nil || len(audio) == 0 {
		lg.Warn("audio track empty or unreadable", slog.Any("error", err))
		return ""
	}
	text, err := s.Speech.Transcribe(ctx, audio)
	if err != nil {
		lg.Warn("speech recognition failed", slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(text)
}
