// Package domain holds the entities, error taxonomy and ports of the interview analyzer.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamRateLimit   = errors.New("upstream rate limit")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInternal            = errors.New("internal error")
	ErrPayloadTooLarge     = errors.New("payload too large")
)

// MaxVideoBytes is the largest interview recording accepted (2 GiB).
const MaxVideoBytes int64 = 2 << 30

// DefaultQuestionBank is the built-in interview question set.
var DefaultQuestionBank = []string{
	"Tell me about yourself.",
	"What are your greatest strengths",
	"What do you consider to be your weaknesses",
	"Where do you see yourself in five years",
	"Why should we hire you",
	"What motivates you",
	"What are your career goals",
	"How do you work in a team",
	"What's your leadership style",
}

// ScoreRecord is the normalized behavioral score set for one answer.
// Every numeric field defaults to 0 and ImpPoints to an empty, non-nil slice.
type ScoreRecord struct {
	Confidence   float64  `json:"confidence"`
	Clarity      float64  `json:"clarity"`
	SpeechRate   float64  `json:"speech_rate"`
	EyeContact   float64  `json:"eye_contact"`
	BodyLanguage float64  `json:"body_language"`
	VoiceTone    float64  `json:"voice_tone"`
	ImpPoints    []string `json:"imp_points"`
}

// DefaultScoreRecord returns the all-zero record.
func DefaultScoreRecord() ScoreRecord {
	return ScoreRecord{ImpPoints: []string{}}
}

// InterviewProgress tracks which bank questions a user has been served.
// Invariants: AskedQuestions has no duplicates; CurrentQuestion, when set, is the last asked.
type InterviewProgress struct {
	UserID          string
	AskedQuestions  []string
	CurrentQuestion *string
	UpdatedAt       time.Time
}

// Asked reports whether q was already served.
func (p InterviewProgress) Asked(q string) bool {
	for _, a := range p.AskedQuestions {
		if a == q {
			return true
		}
	}
	return false
}

// InterviewResult is one persisted answer analysis. Append-only.
type InterviewResult struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"user_id"`
	VideoReferenceID    string      `json:"video_id"`
	Question            string      `json:"question"`
	Scores              ScoreRecord `json:"scores"`
	Transcript          string      `json:"transcript"`
	NarrativeEvaluation string      `json:"gemini_analysis"`
	CreatedAt           time.Time   `json:"created_at"`
}

// ChatMessage is one exchange of the resume chat.
type ChatMessage struct {
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	Timestamp   time.Time `json:"timestamp"`
}

// Resume is uploaded resume metadata. ID is the storage key and never leaves the service;
// clients address a resume by ReferenceID.
type Resume struct {
	ID             string
	ReferenceID    string
	OwnerID        string
	Filename       string
	StoragePath    string
	MIME           string
	Size           int64
	JobDescription *string
	UploadedAt     time.Time
	Analyzed       bool
	AnalysisID     *string
	ChatHistory    []ChatMessage
}

// JobMatch compares a resume against a job description.
type JobMatch struct {
	Score           float64  `json:"score"`
	MatchingSkills  []string `json:"matching_skills"`
	MissingSkills   []string `json:"missing_skills"`
	Recommendations []string `json:"recommendations"`
}

// AnalysisPayload is the structured part of a resume analysis.
type AnalysisPayload struct {
	Score        float64   `json:"score"`
	Summary      string    `json:"summary"`
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	Keywords     []string  `json:"keywords"`
	JobMatch     *JobMatch `json:"job_match,omitempty"`
}

// DefaultAnalysisPayload is substituted when the model reply carries no JSON object.
func DefaultAnalysisPayload() AnalysisPayload {
	return AnalysisPayload{
		Score:        0,
		Summary:      "Analysis could not be structured.",
		Strengths:    []string{},
		Improvements: []string{},
		Keywords:     []string{},
	}
}

// ResumeAnalysis is the stored analysis of a resume.
type ResumeAnalysis struct {
	ID              string
	ResumeID        string
	OwnerID         string
	Payload         AnalysisPayload
	RewrittenResume string
	CreatedAt       time.Time
}

// Event names published after durable writes.
const (
	EventInterviewResultRecorded = "interview.result.recorded"
	EventResumeAnalyzed          = "resume.analyzed"
)

// Event is a domain event emitted to the message bus.
type Event struct {
	Type       string         `json:"type"`
	UserID     string         `json:"user_id"`
	EntityID   string         `json:"entity_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Context is an alias so ports can be declared without importing context everywhere.
type Context = context.Context
