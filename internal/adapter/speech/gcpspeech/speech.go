// Package gcpspeech implements domain.SpeechRecognizer over Google Cloud Speech-to-Text.
package gcpspeech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	backoff "github.com/cenkalti/backoff/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	obsmetrics "github.com/fairyhunter13/ai-interview-analyzer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
	"github.com/fairyhunter13/ai-interview-analyzer/internal/observability"
)

// SampleRateHertz is the rate of the audio the media adapter produces.
const SampleRateHertz = 16000

// MaxInlineBytes stays under the API's 10 MB cap on inline audio content. At
// 16 kHz mono LINEAR16 that is a little over five minutes per request.
const MaxInlineBytes = 10<<20 - 256<<10

// recognizeFunc runs one long-running recognition to completion.
type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

// Recognizer transcribes LINEAR16 mono audio.
type Recognizer struct {
	client    *speech.Client
	recognize recognizeFunc
	language  string
	timeout   time.Duration
	backoff   func() backoff.BackOff
	maxInline int
}

// ClientOptions builds credentials options. Inline JSON wins over a file path;
// with neither, application default credentials apply.
func ClientOptions(credentialsJSON, credentialsFile string) []option.ClientOption {
	if s := strings.TrimSpace(credentialsJSON); s != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(s))}
	}
	if s := strings.TrimSpace(credentialsFile); s != "" {
		return []option.ClientOption{option.WithCredentialsFile(s)}
	}
	return nil
}

// New dials the Speech API.
func New(ctx context.Context, languageCode string, opts ...option.ClientOption) (*Recognizer, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("op=gcpspeech.new_client: %w", err)
	}
	r := newRecognizer(func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := c.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}, languageCode)
	r.client = c
	return r, nil
}

func newRecognizer(fn recognizeFunc, languageCode string) *Recognizer {
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &Recognizer{
		recognize: fn,
		language:  languageCode,
		timeout:   3 * time.Minute,
		maxInline: MaxInlineBytes,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 750 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return backoff.WithMaxRetries(b, 4)
		},
	}
}

// Close releases the gRPC connection.
func (r *Recognizer) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Transcribe returns the top alternative of every result joined by spaces.
// Empty audio yields an empty transcript without a remote call. Audio above the
// inline limit is split into PCM segments recognized in order; words that
// straddle a segment boundary may be lost.
func (r *Recognizer) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	segments := splitPCM(audio, r.maxInline)
	lg := observability.LoggerFromContext(ctx)
	lg.Info("transcribing audio", slog.Int("bytes", len(audio)), slog.Int("segments", len(segments)))

	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		text, err := r.recognizeSegment(ctx, seg)
		if err != nil {
			return "", fmt.Errorf("op=gcpspeech.transcribe: segment %d/%d: %w", i+1, len(segments), err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (r *Recognizer) recognizeSegment(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            SampleRateHertz,
			AudioChannelCount:          1,
			LanguageCode:               r.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}

	var resp *speechpb.LongRunningRecognizeResponse
	start := time.Now()
	err := backoff.Retry(func() error {
		var err error
		resp, err = r.recognize(ctx, req)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(r.backoff(), ctx))
	obsmetrics.ObserveAIRequest("gcp_speech", "recognize", start)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, res := range resp.GetResults() {
		alts := res.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// splitPCM returns audio unchanged when it fits in max bytes. Otherwise the WAV
// header is dropped and the samples are cut into even-length segments of at
// most max bytes, matching the explicit LINEAR16 config.
func splitPCM(audio []byte, max int) [][]byte {
	if max <= 0 || len(audio) <= max {
		return [][]byte{audio}
	}
	pcm := wavData(audio)
	max -= max % 2
	if max == 0 {
		max = 2
	}
	out := make([][]byte, 0, len(pcm)/max+1)
	for len(pcm) > 0 {
		n := max
		if n > len(pcm) {
			n = len(pcm)
		}
		out = append(out, pcm[:n])
		pcm = pcm[n:]
	}
	return out
}

// wavData returns the payload of the "data" chunk of a RIFF/WAVE file, or the
// input itself when it is not one.
func wavData(b []byte) []byte {
	if len(b) < 12 || !bytes.Equal(b[0:4], []byte("RIFF")) || !bytes.Equal(b[8:12], []byte("WAVE")) {
		return b
	}
	for off := 12; off+8 <= len(b); {
		id := b[off : off+4]
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if bytes.Equal(id, []byte("data")) {
			end := body + size
			if size == 0 || end > len(b) || end < body {
				end = len(b) // streamed WAVs leave the size unset
			}
			return b[body:end]
		}
		off = body + size + size%2
	}
	return b
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	return false
}
