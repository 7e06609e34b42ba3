package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/usecase"
)

type stubTranscriber struct{ text string }

func (s stubTranscriber) Extract(_ domain.Context, _ string) string { return s.text }

type stubEvaluator struct {
	gotQuestion, gotTranscript string
	out                        string
}

func (s *stubEvaluator) Compose(_ domain.Context, q, t string) string {
	s.gotQuestion, s.gotTranscript = q, t
	return s.out
}

func tempMedia(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "answer.webm")
	require.NoError(t, os.WriteFile(p, []byte("webm-bytes"), 0o600))
	return p
}

func assertRemoved(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "media file must be removed: %s", path)
}

type analysisDeps struct {
	progress *mocks.ProgressRepository
	video    *mocks.VideoAnalyzer
	results  *mocks.ResultRepository
	events   *mocks.EventPublisher
	eval     *stubEvaluator
}

func newAnalysis(t *testing.T) (usecase.AnalysisService, analysisDeps) {
	d := analysisDeps{
		progress: mocks.NewProgressRepository(t),
		video:    mocks.NewVideoAnalyzer(t),
		results:  mocks.NewResultRepository(t),
		events:   mocks.NewEventPublisher(t),
		eval:     &stubEvaluator{out: "Solid structure."},
	}
	svc := usecase.NewAnalysisService(d.progress, d.video, stubTranscriber{text: "I enjoy teamwork."}, d.eval, d.results, d.events)
	svc.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, d
}

func withCurrent(d analysisDeps, q string) {
	d.progress.On("Get", mock.Anything, "u1").Return(domain.InterviewProgress{UserID: "u1", AskedQuestions: []string{q}, CurrentQuestion: strPtr(q)}, nil)
}

func TestAnalysis_HappyPath(t *testing.T) {
	t.Parallel()
	svc, d := newAnalysis(t)
	media := tempMedia(t)
	withCurrent(d, "How do you work in a team")

	job := domain.VideoJob{ID: "task-1", Status: domain.VideoJobPending}
	d.video.On("Submit", mock.Anything, media).Return(job, nil).Once()
	d.video.On("AwaitTerminal", mock.Anything, job).Return(domain.VideoJob{ID: "task-1", VideoID: "vid-9", Status: domain.VideoJobReady}, nil).Once()
	d.video.On("GenerateText", mock.Anything, "vid-9", usecase.InterviewAnalysisPrompt).
		Return(`Result: {"confidence": "7", "clarity": 8, "imp_points": ["good eye contact"]}`, nil).Once()
	d.results.On("Insert", mock.Anything, mock.MatchedBy(func(r domain.InterviewResult) bool {
		return r.UserID == "u1" && r.VideoReferenceID == "vid-9" && r.Question == "How do you work in a team" &&
			r.Scores.Confidence == 7 && r.NarrativeEvaluation == "Solid structure." && r.Transcript == "I enjoy teamwork."
	})).Return("res-1", nil).Once()
	d.events.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventInterviewResultRecorded && e.EntityID == "res-1" && e.UserID == "u1"
	})).Return(nil).Once()

	out, err := svc.Submit(context.Background(), "u1", usecase.MediaUpload{Path: media, Filename: "answer.webm", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, "res-1", out.ResultID)
	assert.Equal(t, "vid-9", out.VideoID)
	assert.Equal(t, domain.ScoreRecord{Confidence: 7, Clarity: 8, ImpPoints: []string{"good eye contact"}}, out.Scores)
	assert.Equal(t, "Solid structure.", out.NarrativeEvaluation)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, []usecase.AnalysisState{
		usecase.StateReceived, usecase.StateRemoteAnalysisPending, usecase.StateRemoteAnalysisDone,
		usecase.StateNormalized, usecase.StateTranscribed, usecase.StateEvaluated, usecase.StatePersisted,
	}, out.States)
	assert.Equal(t, "How do you work in a team", d.eval.gotQuestion)
	assert.Equal(t, "I enjoy teamwork.", d.eval.gotTranscript)
	assertRemoved(t, media)
}

func TestAnalysis_PersistenceFailureIsWarning(t *testing.T) {
	t.Parallel()
	svc, d := newAnalysis(t)
	media := tempMedia(t)
	withCurrent(d, "What motivates you")

	d.video.On("Submit", mock.Anything, media).Return(domain.VideoJob{ID: "t"}, nil)
	d.video.On("AwaitTerminal", mock.Anything, mock.Anything).Return(domain.VideoJob{ID: "t", VideoID: "v", Status: domain.VideoJobReady}, nil)
	d.video.On("GenerateText", mock.Anything, "v", mock.Anything).Return("no json here", nil)
	d.results.On("Insert", mock.Anything, mock.Anything).Return("", errors.New("connection reset"))

	out, err := svc.Submit(context.Background(), "u1", usecase.MediaUpload{Path: media, Filename: "a.mp4", Size: 10})
	require.NoError(t, err)
	assert.Empty(t, out.ResultID)
	assert.Equal(t, domain.DefaultScoreRecord(), out.Scores)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "result not saved")
	assert.Equal(t, usecase.StateEvaluated, out.States[len(out.States)-1])
	assertRemoved(t, media)
}

func TestAnalysis_Preconditions(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		setup  func(d analysisDeps)
		upload func(path string) usecase.MediaUpload
		user   string
	}{
		{
			name:   "empty filename",
			upload: func(p string) usecase.MediaUpload { return usecase.MediaUpload{Path: p, Filename: "  ", Size: 1} },
			user:   "u1",
		},
		{
			name:   "no file",
			upload: func(string) usecase.MediaUpload { return usecase.MediaUpload{Filename: "a.mp4"} },
			user:   "u1",
		},
		{
			name:   "oversized",
			upload: func(p string) usecase.MediaUpload { return usecase.MediaUpload{Path: p, Filename: "a.mp4", Size: domain.MaxVideoBytes + 1} },
			user:   "u1",
		},
		{
			name:   "missing user",
			upload: func(p string) usecase.MediaUpload { return usecase.MediaUpload{Path: p, Filename: "a.mp4", Size: 1} },
		},
		{
			name: "no progress row",
			setup: func(d analysisDeps) {
				d.progress.On("Get", mock.Anything, "u1").Return(domain.InterviewProgress{}, domain.ErrNotFound)
			},
			upload: func(p string) usecase.MediaUpload { return usecase.MediaUpload{Path: p, Filename: "a.mp4", Size: 1} },
			user:   "u1",
		},
		{
			name: "no current question",
			setup: func(d analysisDeps) {
				d.progress.On("Get", mock.Anything, "u1").Return(domain.InterviewProgress{UserID: "u1"}, nil)
			},
			upload: func(p string) usecase.MediaUpload { return usecase.MediaUpload{Path: p, Filename: "a.mp4", Size: 1} },
			user:   "u1",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, d := newAnalysis(t)
			if tc.setup != nil {
				tc.setup(d)
			}
			media := tempMedia(t)
			out, err := svc.Submit(context.Background(), tc.user, tc.upload(media))
			require.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Equal(t, []usecase.AnalysisState{usecase.StateReceived, usecase.StateFailed}, out.States)
			d.video.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
			assertRemoved(t, media)
		})
	}
}

func TestAnalysis_ConfiguredLimit(t *testing.T) {
	t.Parallel()
	svc, _ := newAnalysis(t)
	svc.MaxBytes = 5
	media := tempMedia(t)
	_, err := svc.Submit(context.Background(), "u1", usecase.MediaUpload{Path: media, Filename: "a.mp4", Size: 6})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assertRemoved(t, media)
}

func TestAnalysis_RemoteFailures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		setup func(d analysisDeps, media string)
		want  error
	}{
		{
			name: "submit connection error",
			setup: func(d analysisDeps, media string) {
				d.video.On("Submit", mock.Anything, media).Return(domain.VideoJob{}, errors.New("dial tcp: refused"))
			},
			want: domain.ErrUpstreamUnavailable,
		},
		{
			name: "indexing failed",
			setup: func(d analysisDeps, media string) {
				d.video.On("Submit", mock.Anything, media).Return(domain.VideoJob{ID: "t"}, nil)
				d.video.On("AwaitTerminal", mock.Anything, mock.Anything).
					Return(domain.VideoJob{ID: "t", Status: domain.VideoJobFailed}, errors.New("indexing failed with status failed"))
			},
			want: domain.ErrUpstreamUnavailable,
		},
		{
			name: "non-ready terminal without error",
			setup: func(d analysisDeps, media string) {
				d.video.On("Submit", mock.Anything, media).Return(domain.VideoJob{ID: "t"}, nil)
				d.video.On("AwaitTerminal", mock.Anything, mock.Anything).Return(domain.VideoJob{ID: "t", Status: domain.VideoJobFailed}, nil)
			},
			want: domain.ErrUpstreamUnavailable,
		},
		{
			name: "wait deadline",
			setup: func(d analysisDeps, media string) {
				d.video.On("Submit", mock.Anything, media).Return(domain.VideoJob{ID: "t"}, nil)
				d.video.On("AwaitTerminal", mock.Anything, mock.Anything).Return(domain.VideoJob{}, context.DeadlineExceeded)
			},
			want: domain.ErrUpstreamTimeout,
		},
		{
			name: "generate rate limited",
			setup: func(d analysisDeps, media string) {
				d.video.On("Submit", mock.Anything, media).Return(domain.VideoJob{ID: "t"}, nil)
				d.video.On("AwaitTerminal", mock.Anything, mock.Anything).Return(domain.VideoJob{ID: "t", VideoID: "v", Status: domain.VideoJobReady}, nil)
				d.video.On("GenerateText", mock.Anything, "v", mock.Anything).Return("", domain.ErrUpstreamRateLimit)
			},
			want: domain.ErrUpstreamRateLimit,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, d := newAnalysis(t)
			media := tempMedia(t)
			withCurrent(d, "What are your career goals")
			tc.setup(d, media)

			out, err := svc.Submit(context.Background(), "u1", usecase.MediaUpload{Path: media, Filename: "a.mp4", Size: 1})
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, usecase.StateFailed, out.States[len(out.States)-1])
			d.results.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			assertRemoved(t, media)
		})
	}
}

func TestAnalysis_EventFailureIgnored(t *testing.T) {
	t.Parallel()
	svc, d := newAnalysis(t)
	media := tempMedia(t)
	withCurrent(d, "q")
	d.video.On("Submit", mock.Anything, media).Return(domain.VideoJob{ID: "t"}, nil)
	d.video.On("AwaitTerminal", mock.Anything, mock.Anything).Return(domain.VideoJob{ID: "t", VideoID: "v", Status: domain.VideoJobReady}, nil)
	d.video.On("GenerateText", mock.Anything, "v", mock.Anything).Return(`{"clarity": 9}`, nil)
	d.results.On("Insert", mock.Anything, mock.Anything).Return("res-2", nil)
	d.events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	out, err := svc.Submit(context.Background(), "u1", usecase.MediaUpload{Path: media, Filename: "a.mp4", Size: 1})
	require.NoError(t, err)
	assert.Equal(t, "res-2", out.ResultID)
	assert.Equal(t, 9.0, out.Scores.Clarity)
}
