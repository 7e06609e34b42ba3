package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// HistoryService reads a user's past interview results.
type HistoryService struct {
	Results domain.ResultRepository
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(r domain.ResultRepository) HistoryService { return HistoryService{Results: r} }

// ByQuestion returns the user's results for one question, newest first.
func (s HistoryService) ByQuestion(ctx domain.Context, userID, question string) ([]domain.InterviewResult, error) {
	question = strings.TrimSpace(question)
	if userID == "" || question == "" {
		return nil, fmt.Errorf("%w: user id and question required", domain.ErrInvalidArgument)
	}
	rs, err := s.Results.ListByQuestion(ctx, userID, question)
	if err != nil {
		return nil, fmt.Errorf("op=history.by_question: %w", err)
	}
	return nonNil(rs), nil
}

// Get returns one of the user's results; another user's result is not found.
func (s HistoryService) Get(ctx domain.Context, userID, id string) (domain.InterviewResult, error) {
	id = strings.TrimSpace(id)
	if userID == "" || id == "" {
		return domain.InterviewResult{}, fmt.Errorf("%w: user id and result id required", domain.ErrInvalidArgument)
	}
	r, err := s.Results.Get(ctx, userID, id)
	if err != nil {
		return domain.InterviewResult{}, fmt.Errorf("op=history.get: %w", err)
	}
	return r, nil
}

// List returns all of the user's results, newest first.
func (s HistoryService) List(ctx domain.Context, userID string) ([]domain.InterviewResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	rs, err := s.Results.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("op=history.list: %w", err)
	}
	return nonNil(rs), nil
}

func nonNil(rs []domain.InterviewResult) []domain.InterviewResult {
	if rs == nil {
		return []domain.InterviewResult{}
	}
	return rs
}
