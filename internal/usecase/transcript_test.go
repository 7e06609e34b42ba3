package usecase_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/usecase"
)

func writeWAV(args mock.Arguments) {
	_ = os.WriteFile(args.String(2), []byte("RIFF....WAVEfmt "), 0o600)
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary audio must not remain")
}

func TestTranscript_Success(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	audio := mocks.NewAudioExtractor(t)
	speech := mocks.NewSpeechRecognizer(t)
	audio.On("ExtractAudio", mock.Anything, "/media/answer.mp4", mock.AnythingOfType("string")).Run(writeWAV).Return(nil)
	speech.On("Transcribe", mock.Anything, []byte("RIFF....WAVEfmt ")).Return("  I led a team of five.  ", nil)

	svc := usecase.NewTranscriptService(audio, speech, dir)
	got := svc.Extract(context.Background(), "/media/answer.mp4")
	assert.Equal(t, "I led a team of five.", got)
	assertDirEmpty(t, dir)
}

func TestTranscript_NoAudioTrack(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	audio := mocks.NewAudioExtractor(t)
	speech := mocks.NewSpeechRecognizer(t)
	audio.On("ExtractAudio", mock.Anything, "silent.mp4", mock.Anything).Return(errors.New("Output file #0 does not contain any stream"))

	got := usecase.NewTranscriptService(audio, speech, dir).Extract(context.Background(), "silent.mp4")
	assert.Equal(t, "", got)
	assertDirEmpty(t, dir)
}

func TestTranscript_EmptyAudio(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	audio := mocks.NewAudioExtractor(t)
	speech := mocks.NewSpeechRecognizer(t)
	audio.On("ExtractAudio", mock.Anything, "x.mp4", mock.Anything).Return(nil)

	got := usecase.NewTranscriptService(audio, speech, dir).Extract(context.Background(), "x.mp4")
	assert.Equal(t, "", got)
	assertDirEmpty(t, dir)
}

func TestTranscript_RecognitionFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	audio := mocks.NewAudioExtractor(t)
	speech := mocks.NewSpeechRecognizer(t)
	audio.On("ExtractAudio", mock.Anything, "x.mp4", mock.Anything).Run(writeWAV).Return(nil)
	speech.On("Transcribe", mock.Anything, mock.Anything).Return("", errors.New("unavailable"))

	got := usecase.NewTranscriptService(audio, speech, dir).Extract(context.Background(), "x.mp4")
	assert.Equal(t, "", got)
	assertDirEmpty(t, dir)
}

func TestTranscript_NotConfigured(t *testing.T) {
	t.Parallel()
	svc := usecase.TranscriptService{}
	assert.Equal(t, "", svc.Extract(context.Background(), "x.mp4"))
}

func TestTranscript_BadTempDir(t *testing.T) {
	t.Parallel()
	audio := mocks.NewAudioExtractor(t)
	speech := mocks.NewSpeechRecognizer(t)
	svc := usecase.NewTranscriptService(audio, speech, "/definitely/not/a/dir")
	assert.Equal(t, "", svc.Extract(context.Background(), "x.mp4"))
}
