package gcpspeech

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

func result(alts ...string) *speechpb.SpeechRecognitionResult {
	r := &speechpb.SpeechRecognitionResult{}
	for _, a := range alts {
		r.Alternatives = append(r.Alternatives, &speechpb.SpeechRecognitionAlternative{Transcript: a})
	}
	return r
}

func fast(r *Recognizer) *Recognizer {
	r.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}
	return r
}

func TestTranscribe_JoinsTopAlternatives(t *testing.T) {
	t.Parallel()
	var got *speechpb.LongRunningRecognizeRequest
	r := newRecognizer(func(_ context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		got = req
		return &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
			result("I enjoy working", "I and joy working"),
			result(),
			result(" in teams. "),
		}}, nil
	}, "")

	out, err := r.Transcribe(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "I enjoy working in teams.", out)
	require.NotNil(t, got)
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, got.GetConfig().GetEncoding())
	assert.Equal(t, int32(SampleRateHertz), got.GetConfig().GetSampleRateHertz())
	assert.Equal(t, "en-US", got.GetConfig().GetLanguageCode())
}

func TestTranscribe_EmptyAudioSkipsCall(t *testing.T) {
	t.Parallel()
	r := newRecognizer(func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		t.Fatal("recognize must not be called")
		return nil, nil
	}, "en-GB")
	out, err := r.Transcribe(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTranscribe_RetriesTransientCodes(t *testing.T) {
	t.Parallel()
	calls := 0
	r := fast(newRecognizer(func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		calls++
		if calls == 1 {
			return nil, status.Error(codes.Unavailable, "try again")
		}
		return &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{result("ok")}}, nil
	}, ""))
	out, err := r.Transcribe(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}

func TestTranscribe_PermanentFailure(t *testing.T) {
	t.Parallel()
	calls := 0
	r := fast(newRecognizer(func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		calls++
		return nil, status.Error(codes.InvalidArgument, "bad audio")
	}, ""))
	_, err := r.Transcribe(context.Background(), []byte{1})
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, 1, calls)
}

func TestClientOptions(t *testing.T) {
	t.Parallel()
	assert.Len(t, ClientOptions(`{"type":"service_account"}`, "/ignored.json"), 1)
	assert.Len(t, ClientOptions("", "/creds.json"), 1)
	assert.Empty(t, ClientOptions(" ", ""))
}

func wav(pcm []byte) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	b.Write(make([]byte, 16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}

func TestTranscribe_SplitsAudioAboveInlineLimit(t *testing.T) {
	t.Parallel()
	var sent [][]byte
	r := newRecognizer(func(_ context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		content := req.GetAudio().GetContent()
		sent = append(sent, content)
		return &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
			result(string(rune('a' + len(sent) - 1))),
		}}, nil
	}, "")
	r.maxInline = 5

	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out, err := r.Transcribe(context.Background(), wav(pcm))
	require.NoError(t, err)
	assert.Equal(t, "a b c", out)
	assert.Equal(t, [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10}}, sent, "header dropped, segments sample aligned")
}

func TestTranscribe_SegmentFailureAborts(t *testing.T) {
	t.Parallel()
	calls := 0
	r := fast(newRecognizer(func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		calls++
		if calls == 2 {
			return nil, status.Error(codes.InvalidArgument, "bad audio")
		}
		return &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{result("x")}}, nil
	}, ""))
	r.maxInline = 2
	_, err := r.Transcribe(context.Background(), []byte{1, 2, 3, 4, 5, 6})
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "segment 2/3")
	assert.Equal(t, 2, calls)
}

func TestSplitPCM(t *testing.T) {
	t.Parallel()
	small := wav([]byte{1, 2})
	assert.Equal(t, [][]byte{small}, splitPCM(small, MaxInlineBytes), "fits inline: sent as is")
	assert.Equal(t, [][]byte{{1, 2}, {3}}, splitPCM([]byte{1, 2, 3}, 2), "raw pcm is split without header parsing")
	assert.Equal(t, []byte{7, 8}, wavData(wav([]byte{7, 8})))
	assert.Equal(t, []byte("not a wav"), wavData([]byte("not a wav")))
}
