// Package ffmpeg decodes the audio track of a recording with the ffmpeg binary.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Extractor implements domain.AudioExtractor.
type Extractor struct {
	bin        string
	sampleRate int
	timeout    time.Duration
}

// New returns an extractor running bin (default "ffmpeg").
func New(bin string) *Extractor {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Extractor{bin: bin, sampleRate: 16000, timeout: 10 * time.Minute}
}

// AssertReady checks the binary is on PATH.
func (e *Extractor) AssertReady() error {
	if _, err := exec.LookPath(e.bin); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", e.bin, err)
	}
	return nil
}

// ExtractAudio writes the audio track of mediaPath to outPath as mono 16-bit
// PCM WAV. A recording without an audio stream is an error.
func (e *Extractor) ExtractAudio(ctx context.Context, mediaPath, outPath string) error {
	if mediaPath == "" || outPath == "" {
		return fmt.Errorf("op=ffmpeg.extract_audio: media and output paths required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("op=ffmpeg.extract_audio: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", mediaPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(e.sampleRate),
		"-f", "wav", outPath,
	}
	// #nosec G204 -- binary comes from config, paths are server-generated
	out, err := exec.CommandContext(ctx, e.bin, args...).CombinedOutput()
	if err != nil {
		msg := string(out)
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return fmt.Errorf("op=ffmpeg.extract_audio: %w; out=%s", err, msg)
	}
	return nil
}
