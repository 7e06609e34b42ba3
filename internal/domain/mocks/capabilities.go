package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// VideoAnalyzer is a mock of domain.VideoAnalyzer.
type VideoAnalyzer struct{ mock.Mock }

func NewVideoAnalyzer(t testingT) *VideoAnalyzer {
	m := &VideoAnalyzer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *VideoAnalyzer) Submit(ctx domain.Context, mediaPath string) (domain.VideoJob, error) {
	ret := m.Called(ctx, mediaPath)
	return ret.Get(0).(domain.VideoJob), ret.Error(1)
}

func (m *VideoAnalyzer) AwaitTerminal(ctx domain.Context, job domain.VideoJob) (domain.VideoJob, error) {
	ret := m.Called(ctx, job)
	return ret.Get(0).(domain.VideoJob), ret.Error(1)
}

func (m *VideoAnalyzer) GenerateText(ctx domain.Context, videoID, prompt string) (string, error) {
	ret := m.Called(ctx, videoID, prompt)
	return ret.String(0), ret.Error(1)
}

// Generator is a mock of domain.Generator.
type Generator struct{ mock.Mock }

func NewGenerator(t testingT) *Generator {
	m := &Generator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Generator) Generate(ctx domain.Context, prompt string) (string, error) {
	ret := m.Called(ctx, prompt)
	return ret.String(0), ret.Error(1)
}

// AudioExtractor is a mock of domain.AudioExtractor.
type AudioExtractor struct{ mock.Mock }

func NewAudioExtractor(t testingT) *AudioExtractor {
	m := &AudioExtractor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *AudioExtractor) ExtractAudio(ctx domain.Context, mediaPath, outPath string) error {
	return m.Called(ctx, mediaPath, outPath).Error(0)
}

// SpeechRecognizer is a mock of domain.SpeechRecognizer.
type SpeechRecognizer struct{ mock.Mock }

func NewSpeechRecognizer(t testingT) *SpeechRecognizer {
	m := &SpeechRecognizer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SpeechRecognizer) Transcribe(ctx domain.Context, audio []byte) (string, error) {
	ret := m.Called(ctx, audio)
	return ret.String(0), ret.Error(1)
}

// TextExtractor is a mock of domain.TextExtractor.
type TextExtractor struct{ mock.Mock }

func NewTextExtractor(t testingT) *TextExtractor {
	m := &TextExtractor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TextExtractor) ExtractPath(ctx domain.Context, fileName, path string) (string, error) {
	ret := m.Called(ctx, fileName, path)
	return ret.String(0), ret.Error(1)
}

// EventPublisher is a mock of domain.EventPublisher.
type EventPublisher struct{ mock.Mock }

func NewEventPublisher(t testingT) *EventPublisher {
	m := &EventPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *EventPublisher) Publish(ctx domain.Context, e domain.Event) error {
	return m.Called(ctx, e).Error(0)
}
