// Package mocks provides testify mocks for the domain ports, in the shape mockery generates.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// ProgressRepository is a mock of domain.ProgressRepository.
type ProgressRepository struct{ mock.Mock }

// NewProgressRepository creates a mock and registers expectation assertion on cleanup.
func NewProgressRepository(t testingT) *ProgressRepository {
	m := &ProgressRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ProgressRepository) Get(ctx domain.Context, userID string) (domain.InterviewProgress, error) {
	ret := m.Called(ctx, userID)
	return ret.Get(0).(domain.InterviewProgress), ret.Error(1)
}

func (m *ProgressRepository) Upsert(ctx domain.Context, p domain.InterviewProgress) error {
	return m.Called(ctx, p).Error(0)
}

func (m *ProgressRepository) AppendAsked(ctx domain.Context, userID, q string, at time.Time) (domain.InterviewProgress, error) {
	ret := m.Called(ctx, userID, q, at)
	return ret.Get(0).(domain.InterviewProgress), ret.Error(1)
}

// ResultRepository is a mock of domain.ResultRepository.
type ResultRepository struct{ mock.Mock }

func NewResultRepository(t testingT) *ResultRepository {
	m := &ResultRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ResultRepository) Insert(ctx domain.Context, r domain.InterviewResult) (string, error) {
	ret := m.Called(ctx, r)
	return ret.String(0), ret.Error(1)
}

func (m *ResultRepository) Get(ctx domain.Context, userID, id string) (domain.InterviewResult, error) {
	ret := m.Called(ctx, userID, id)
	r, _ := ret.Get(0).(domain.InterviewResult)
	return r, ret.Error(1)
}

func (m *ResultRepository) ListByQuestion(ctx domain.Context, userID, question string) ([]domain.InterviewResult, error) {
	ret := m.Called(ctx, userID, question)
	rs, _ := ret.Get(0).([]domain.InterviewResult)
	return rs, ret.Error(1)
}

func (m *ResultRepository) ListByUser(ctx domain.Context, userID string) ([]domain.InterviewResult, error) {
	ret := m.Called(ctx, userID)
	rs, _ := ret.Get(0).([]domain.InterviewResult)
	return rs, ret.Error(1)
}

// ResumeRepository is a mock of domain.ResumeRepository.
type ResumeRepository struct{ mock.Mock }

func NewResumeRepository(t testingT) *ResumeRepository {
	m := &ResumeRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ResumeRepository) Create(ctx domain.Context, r domain.Resume) (string, error) {
	ret := m.Called(ctx, r)
	return ret.String(0), ret.Error(1)
}

func (m *ResumeRepository) GetByReference(ctx domain.Context, ownerID, referenceID string) (domain.Resume, error) {
	ret := m.Called(ctx, ownerID, referenceID)
	return ret.Get(0).(domain.Resume), ret.Error(1)
}

func (m *ResumeRepository) ListByOwner(ctx domain.Context, ownerID string) ([]domain.Resume, error) {
	ret := m.Called(ctx, ownerID)
	rs, _ := ret.Get(0).([]domain.Resume)
	return rs, ret.Error(1)
}

func (m *ResumeRepository) MarkAnalyzed(ctx domain.Context, resumeID, analysisID string) error {
	return m.Called(ctx, resumeID, analysisID).Error(0)
}

func (m *ResumeRepository) AppendChat(ctx domain.Context, resumeID string, msg domain.ChatMessage) error {
	return m.Called(ctx, resumeID, msg).Error(0)
}

// ResumeAnalysisRepository is a mock of domain.ResumeAnalysisRepository.
type ResumeAnalysisRepository struct{ mock.Mock }

func NewResumeAnalysisRepository(t testingT) *ResumeAnalysisRepository {
	m := &ResumeAnalysisRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ResumeAnalysisRepository) Create(ctx domain.Context, a domain.ResumeAnalysis) (string, error) {
	ret := m.Called(ctx, a)
	return ret.String(0), ret.Error(1)
}

func (m *ResumeAnalysisRepository) Get(ctx domain.Context, id string) (domain.ResumeAnalysis, error) {
	ret := m.Called(ctx, id)
	return ret.Get(0).(domain.ResumeAnalysis), ret.Error(1)
}
