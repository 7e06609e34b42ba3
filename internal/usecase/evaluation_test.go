package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/usecase"
)

func TestBuildEvaluationPrompt(t *testing.T) {
	t.Parallel()
	p := usecase.BuildEvaluationPrompt("Why should we hire you", "Because I ship.")
	assert.Contains(t, p, `"Why should we hire you"`)
	assert.Contains(t, p, `"Because I ship."`)
	assert.Contains(t, p, "maximum of 5 points")
	assert.Contains(t, p, "freshers")
	assert.Contains(t, p, "experienced")
	assert.NotContains(t, p, "No speech was detected")
	assert.Equal(t, p, usecase.BuildEvaluationPrompt("Why should we hire you", "Because I ship."))
}

func TestBuildEvaluationPrompt_EmptyTranscript(t *testing.T) {
	t.Parallel()
	for _, tr := range []string{"", "   \n\t"} {
		p := usecase.BuildEvaluationPrompt("What motivates you", tr)
		assert.Contains(t, p, "No speech was detected")
		assert.Contains(t, p, "freshers")
		assert.True(t, strings.Contains(p, "What motivates you"))
	}
}

func TestEvaluation_Compose(t *testing.T) {
	t.Parallel()
	gen := mocks.NewGenerator(t)
	gen.On("Generate", mock.Anything, usecase.BuildEvaluationPrompt("q", "t")).Return("Great answer.\n\n1. Add numbers.", nil).Once()

	out := usecase.NewEvaluationService(gen).Compose(context.Background(), "q", "t")
	assert.Equal(t, "Great answer.\n\n1. Add numbers.", out)
}

func TestEvaluation_ComposeFailureSentinel(t *testing.T) {
	t.Parallel()
	gen := mocks.NewGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()

	out := usecase.NewEvaluationService(gen).Compose(context.Background(), "q", "")
	assert.Equal(t, usecase.EvaluationFailedText, out)
	assert.Equal(t, "Gemini analysis failed.", out)
}

func TestEvaluation_NoGenerator(t *testing.T) {
	t.Parallel()
	assert.Equal(t, usecase.EvaluationFailedText, usecase.EvaluationService{}.Compose(context.Background(), "q", "t"))
}
