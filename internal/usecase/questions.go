package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
)

// QuestionService dispenses bank questions to a user without repetition until reset.
type QuestionService struct {
	Progress domain.ProgressRepository
	// Locker is optional; the repository's conditional append keeps the list
	// duplicate-free without it, the lock only avoids wasted retries.
	Locker domain.UserLocker
	Bank   []string
	Rand   func(n int) int
	Now    func() time.Time
}

// NewQuestionService constructs a QuestionService over bank.
func NewQuestionService(p domain.ProgressRepository, l domain.UserLocker, bank []string) QuestionService {
	return QuestionService{Progress: p, Locker: l, Bank: bank, Rand: rand.IntN, Now: time.Now}
}

// Questions returns a copy of the bank.
func (s QuestionService) Questions() []string {
	return append([]string(nil), s.Bank...)
}

// NextQuestion picks an unseen question uniformly at random, records it as asked
// and current, and returns it. exhausted is true, with no state change, when every
// bank question was already asked.
func (s QuestionService) NextQuestion(ctx domain.Context, userID string) (question string, exhausted bool, err error) {
	if userID == "" {
		return "", false, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	lg := observability.LoggerFromContext(ctx).With(slog.String("user_id", userID))
	if s.Locker != nil {
		unlock, lerr := s.Locker.Lock(ctx, "progress:"+userID)
		if lerr != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			lg.Warn("progress lock unavailable; relying on conditional append", slog.Any("error", lerr))
		} else {
			defer unlock()
		}
	}

	// Each conflict means another request claimed a question first; at most
	// len(Bank) questions can be claimed, so the loop is bounded.
	for attempt := 0; attempt <= len(s.Bank); attempt++ {
		p, err := s.load(ctx, userID)
		if err != nil {
			return "", false, err
		}
		available := remaining(s.Bank, p)
		if len(available) == 0 {
			lg.Info("question bank exhausted", slog.Int("asked", len(p.AskedQuestions)))
			return "", true, nil
		}
		q := available[s.intn(len(available))]
		_, err = s.Progress.AppendAsked(ctx, userID, q, s.now())
		if errors.Is(err, domain.ErrConflict) {
			lg.Debug("question claimed concurrently; reselecting", slog.String("question", q))
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("op=questions.next: %w", err)
		}
		lg.Info("question dispensed", slog.String("question", q), slog.Int("remaining", len(available)-1))
		return q, false, nil
	}
	return "", false, fmt.Errorf("%w: question rotation contended", domain.ErrConflict)
}

// CurrentQuestion returns the question awaiting an answer, or nil.
func (s QuestionService) CurrentQuestion(ctx domain.Context, userID string) (*string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.CurrentQuestion, nil
}

// Reset clears the asked list and the current question.
func (s QuestionService) Reset(ctx domain.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	err := s.Progress.Upsert(ctx, domain.InterviewProgress{
		UserID:         userID,
		AskedQuestions: []string{},
		UpdatedAt:      s.now(),
	})
	if err != nil {
		return fmt.Errorf("op=questions.reset: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("interview progress reset", slog.String("user_id", userID))
	return nil
}

// load treats a missing row as the fresh-user state.
func (s QuestionService) load(ctx domain.Context, userID string) (domain.InterviewProgress, error) {
	p, err := s.Progress.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.InterviewProgress{UserID: userID, AskedQuestions: []string{}}, nil
	}
	if err != nil {
		return domain.InterviewProgress{}, fmt.Errorf("op=questions.load: %w", err)
	}
	return p, nil
}

func remaining(bank []string, p domain.InterviewProgress) []string {
	out := make([]string, 0, len(bank))
	for _, q := range bank {
		if !p.Asked(q) {
			out = append(out, q)
		}
	}
	return out
}

func (s QuestionService) intn(n int) int {
	if s.Rand == nil {
		return rand.IntN(n)
	}
	i := s.Rand(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

func (s QuestionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
