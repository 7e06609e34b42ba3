package usecase_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

// memProgress is an in-memory ProgressRepository with the same conditional-append
// semantics as the postgres implementation.
type memProgress struct {
	mu      sync.Mutex
	rows    map[string]domain.InterviewProgress
	appends int
}

func newMemProgress() *memProgress {
	return &memProgress{rows: map[string]domain.InterviewProgress{}}
}

func (m *memProgress) Get(_ domain.Context, userID string) (domain.InterviewProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return domain.InterviewProgress{}, domain.ErrNotFound
	}
	p.AskedQuestions = append([]string(nil), p.AskedQuestions...)
	return p, nil
}

func (m *memProgress) Upsert(_ domain.Context, p domain.InterviewProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.AskedQuestions = append([]string(nil), p.AskedQuestions...)
	m.rows[p.UserID] = p
	return nil
}

func (m *memProgress) AppendAsked(_ domain.Context, userID, q string, at time.Time) (domain.InterviewProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.rows[userID]
	p.UserID = userID
	if p.Asked(q) {
		return domain.InterviewProgress{}, domain.ErrConflict
	}
	m.appends++
	p.AskedQuestions = append(append([]string(nil), p.AskedQuestions...), q)
	cur := q
	p.CurrentQuestion = &cur
	p.UpdatedAt = at
	m.rows[userID] = p
	return p, nil
}

func strPtr(s string) *string { return &s }

func sprintf(format, arg string) string {
	return fmt.Sprintf(format, arg)
}
