// Package local stores uploaded media and resumes on the local filesystem.
package local

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

const (
	videoDir  = "videos"
	resumeDir = "resumes"
	tmpDir    = "tmp"

	// sniffLen matches the mimetype default read limit.
	sniffLen = 3072
)

// Saved describes a file written to storage.
type Saved struct {
	Path     string
	Filename string
	MIME     string
	Size     int64
}

// Store lays files out under Root as videos/, resumes/ and tmp/.
type Store struct {
	Root string
	Now  func() time.Time
}

// New creates the directory layout under root.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("op=storage.new: %w", err)
	}
	for _, d := range []string{videoDir, resumeDir, tmpDir} {
		if err := os.MkdirAll(filepath.Join(abs, d), 0o750); err != nil {
			return nil, fmt.Errorf("op=storage.new: %w", err)
		}
	}
	return &Store{Root: abs, Now: time.Now}, nil
}

// ResumeRoot is the directory text extraction is confined to.
func (s *Store) ResumeRoot() string { return filepath.Join(s.Root, resumeDir) }

// TempDir holds short-lived intermediates such as decoded audio.
func (s *Store) TempDir() string { return filepath.Join(s.Root, tmpDir) }

// SaveVideo streams an interview recording to disk. Only video content is accepted.
func (s *Store) SaveVideo(src io.Reader, filename string, maxBytes int64) (Saved, error) {
	return s.save(src, videoDir, filename, maxBytes, func(mime, _ string) bool {
		return strings.HasPrefix(mime, "video/")
	})
}

// SaveResume streams a resume to disk. Accepted: .pdf, .docx and .txt with matching content.
func (s *Store) SaveResume(src io.Reader, filename string, maxBytes int64) (Saved, error) {
	if !AllowedResumeExt(filename) {
		return Saved{}, fmt.Errorf("%w: unsupported resume extension %q", domain.ErrInvalidArgument, filepath.Ext(filename))
	}
	return s.save(src, resumeDir, filename, maxBytes, AllowedResumeMIME)
}

func (s *Store) save(src io.Reader, dir, filename string, maxBytes int64, allowed func(mime, filename string) bool) (Saved, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Saved{}, fmt.Errorf("%w: filename required", domain.ErrInvalidArgument)
	}
	br := bufio.NewReaderSize(src, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Saved{}, saveErr(err)
	}
	if len(head) == 0 {
		return Saved{}, fmt.Errorf("%w: empty file", domain.ErrInvalidArgument)
	}
	mime := mimetype.Detect(head).String()
	if !allowed(strings.ToLower(mime), name) {
		return Saved{}, fmt.Errorf("%w: unsupported content type %s", domain.ErrInvalidArgument, mime)
	}

	path := filepath.Join(s.Root, dir, ulid.Make().String()+strings.ToLower(filepath.Ext(name)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return Saved{}, fmt.Errorf("op=storage.save: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(br, maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxBytes {
		err = fmt.Errorf("%w: limit is %d bytes", domain.ErrPayloadTooLarge, maxBytes)
	}
	if err != nil {
		_ = os.Remove(path)
		return Saved{}, saveErr(err)
	}
	return Saved{Path: path, Filename: name, MIME: mime, Size: n}, nil
}

// saveErr reports a request body cut off by http.MaxBytesReader as too large.
func saveErr(err error) error {
	if errors.Is(err, domain.ErrPayloadTooLarge) {
		return err
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: limit is %d bytes", domain.ErrPayloadTooLarge, mbe.Limit)
	}
	return fmt.Errorf("op=storage.save: %w", err)
}

// AllowedResumeExt enforces the resume extension allowlist.
func AllowedResumeExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".txt":
		return true
	}
	return false
}

// AllowedResumeMIME accepts PDF, DOCX and text. For .txt any text/* is accepted
// because detectors misclassify rich text.
func AllowedResumeMIME(m, filename string) bool {
	m = strings.ToLower(m)
	if strings.HasSuffix(strings.ToLower(filename), ".txt") && strings.HasPrefix(m, "text/") {
		return true
	}
	if strings.HasPrefix(m, "text/plain") {
		return true
	}
	return m == "application/pdf" || m == "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// Sweep removes recordings and temp files older than maxAge. The pipeline
// deletes recordings itself, so anything left behind was orphaned by a crash.
// Resumes are referenced by stored metadata and are never swept.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, d := range []string{videoDir, tmpDir} {
		entries, err := os.ReadDir(filepath.Join(s.Root, d))
		if err != nil {
			return removed, fmt.Errorf("op=storage.sweep: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(s.Root, d, e.Name())); err != nil && !os.IsNotExist(err) {
				slog.Warn("sweep remove failed", slog.String("file", e.Name()), slog.Any("error", err))
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// RunPeriodic sweeps once immediately and then on every interval until ctx is done.
func (s *Store) RunPeriodic(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweepAndLog(maxAge)
	for {
		select {
		case <-ctx.Done():
			slog.Info("upload sweeper stopping")
			return
		case <-ticker.C:
			s.sweepAndLog(maxAge)
		}
	}
}

func (s *Store) sweepAndLog(maxAge time.Duration) {
	n, err := s.Sweep(maxAge)
	if err != nil {
		slog.Error("upload sweep failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		slog.Info("upload sweep completed", slog.Int("removed", n), slog.Duration("max_age", maxAge))
	}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
