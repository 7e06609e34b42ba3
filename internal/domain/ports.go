package domain

import "time"

//go:generate mockery --name=ProgressRepository --with-expecter --filename=progress_repository_mock.go
//go:generate mockery --name=ResultRepository --with-expecter --filename=result_repository_mock.go
//go:generate mockery --name=ResumeRepository --with-expecter --filename=resume_repository_mock.go
//go:generate mockery --name=ResumeAnalysisRepository --with-expecter --filename=resume_analysis_repository_mock.go
//go:generate mockery --name=VideoAnalyzer --with-expecter --filename=video_analyzer_mock.go
//go:generate mockery --name=Generator --with-expecter --filename=generator_mock.go

// Repositories (ports)

// ProgressRepository stores per-user question rotation state.
type ProgressRepository interface {
	// Get returns ErrNotFound when the user has no progress row.
	Get(ctx Context, userID string) (InterviewProgress, error)
	Upsert(ctx Context, p InterviewProgress) error
	// AppendAsked appends q to the asked list and makes it current in one statement.
	// It returns ErrConflict when q is already in the list.
	AppendAsked(ctx Context, userID, q string, at time.Time) (InterviewProgress, error)
}

type ResultRepository interface {
	Insert(ctx Context, r InterviewResult) (string, error)
	Get(ctx Context, userID, id string) (InterviewResult, error)
	ListByQuestion(ctx Context, userID, question string) ([]InterviewResult, error)
	ListByUser(ctx Context, userID string) ([]InterviewResult, error)
}

type ResumeRepository interface {
	Create(ctx Context, r Resume) (string, error)
	GetByReference(ctx Context, ownerID, referenceID string) (Resume, error)
	ListByOwner(ctx Context, ownerID string) ([]Resume, error)
	MarkAnalyzed(ctx Context, resumeID, analysisID string) error
	AppendChat(ctx Context, resumeID string, msg ChatMessage) error
}

type ResumeAnalysisRepository interface {
	Create(ctx Context, a ResumeAnalysis) (string, error)
	Get(ctx Context, id string) (ResumeAnalysis, error)
}

// Capabilities (ports)

// VideoJobStatus mirrors the remote indexing task status.
type VideoJobStatus string

const (
	VideoJobPending VideoJobStatus = "pending"
	VideoJobReady   VideoJobStatus = "ready"
	VideoJobFailed  VideoJobStatus = "failed"
)

// VideoJob identifies a remote analysis job.
type VideoJob struct {
	ID      string
	VideoID string
	Status  VideoJobStatus
}

// VideoAnalyzer submits a recording for indexing and generates text about it.
type VideoAnalyzer interface {
	Submit(ctx Context, mediaPath string) (VideoJob, error)
	// AwaitTerminal blocks until the job is ready or failed; a failed job is an error.
	AwaitTerminal(ctx Context, job VideoJob) (VideoJob, error)
	GenerateText(ctx Context, videoID, prompt string) (string, error)
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx Context, prompt string) (string, error)
}

// AudioExtractor decodes the audio track of a media file to mono 16 kHz PCM WAV at outPath.
type AudioExtractor interface {
	ExtractAudio(ctx Context, mediaPath, outPath string) error
}

// SpeechRecognizer transcribes LINEAR16 16 kHz mono audio.
type SpeechRecognizer interface {
	Transcribe(ctx Context, audio []byte) (string, error)
}

// TextExtractor (port)
// ExtractPath extracts text from a file at path with provided original filename.
type TextExtractor interface {
	ExtractPath(ctx Context, fileName, path string) (string, error)
}

// UserLocker serializes read-modify-write sequences per key.
type UserLocker interface {
	Lock(ctx Context, key string) (unlock func(), err error)
}

// EventPublisher emits domain events. Implementations must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx Context, e Event) error
}
