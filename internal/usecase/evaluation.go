package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
)

// EvaluationFailedText replaces the narrative evaluation when generation fails.
const EvaluationFailedText = "Gemini analysis failed."

const evaluationInstructions = `Provide a concise and respectful evaluation of the response. Focus on constructive criticism, then offer two good answer templates as suggestions, one for freshers and one for experienced candidates.

The response should be:
1. Short and to the point.
2. Limited to a maximum of 5 points of constructive criticism.
3. Respectful and encouraging.
4. Focused on improvement.
5. Structured in three sections: "Evaluation", "Points to improve" (numbered) and "Answer templates" with a "Fresher" and an "Experienced" template, each simple and easy to understand.
6. Written in a natural, human tone.
7. Separated by a line break after each point.`

const noSpeechInstructions = `No speech was detected in the candidate's recording. Start the evaluation by stating clearly that no speech was detected, give at most 5 short tips for answering this question on camera, and still provide the two answer templates, one for freshers and one for experienced candidates. Leave a line break after each point.`

// BuildEvaluationPrompt renders the narrative evaluation prompt. It is deterministic.
func BuildEvaluationPrompt(question, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate the following response to the interview question: %q.\n\n", question)
	if strings.TrimSpace(transcript) == "" {
		b.WriteString("Response: (no speech detected)\n\n")
		b.WriteString(noSpeechInstructions)
		return b.String()
	}
	fmt.Fprintf(&b, "Response: %q\n\n", transcript)
	b.WriteString(evaluationInstructions)
	return b.String()
}

// EvaluationService composes narrative coaching feedback for an answer.
type EvaluationService struct {
	Generator domain.Generator
}

// NewEvaluationService constructs an EvaluationService.
func NewEvaluationService(g domain.Generator) EvaluationService {
	return EvaluationService{Generator: g}
}

// Compose returns the model's feedback verbatim, or EvaluationFailedText when generation fails.
func (s EvaluationService) Compose(ctx domain.Context, question, transcript string) string {
	lg := observability.LoggerFromContext(ctx)
	if s.Generator == nil {
		lg.Warn("evaluation generator not configured")
		return EvaluationFailedText
	}
	start := time.Now()
	out, err := s.Generator.Generate(ctx, BuildEvaluationPrompt(question, transcript))
	if err != nil {
		lg.Error("narrative evaluation failed", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return EvaluationFailedText
	}
	return out
}
