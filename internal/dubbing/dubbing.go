// Package dubbing provides the use cases behind the HTTP API: building voice
// models from uploaded recordings, synthesizing translated speech and
// separating vocals from background music.
package dubbing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/maauso/dubvoice-api/internal/audio"
	"github.com/maauso/dubvoice-api/internal/storage"
)

// DefaultMaxUploadBytes is the largest accepted upload, per file.
const DefaultMaxUploadBytes int64 = 10 << 20

// StaticAudioPrefix is the URL prefix under which the audio directory is served.
const StaticAudioPrefix = "/extracted_audio"

// Static errors for dubbing use cases.
var (
	// ErrInvalidInput is wrapped by every request validation failure.
	ErrInvalidInput = errors.New("dubbing: invalid input")
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("dubbing: file too large")
	// ErrNoSamplesProduced is returned when no file yielded a usable sample.
	ErrNoSamplesProduced = errors.New("dubbing: no samples produced")
	// ErrNoVoiceID is returned when cloning succeeds without a voice identifier.
	ErrNoVoiceID = errors.New("dubbing: cloning returned no voice ID")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Synthesizer renders text as speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// Cloner creates a voice from sample recordings.
type Cloner interface {
	CreateVoiceModel(ctx context.Context, name, description string, samplePaths []string) (string, error)
}

// Curator turns a vocal track into sample clips written under workDir.
type Curator interface {
	Run(ctx context.Context, track, workDir string) ([]audio.SampleClip, error)
}

// DurationProber reports the duration of an audio file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Saver writes a stream to disk with an optional size limit.
type Saver interface {
	Save(ctx context.Context, path string, data io.Reader, limit int64) (int64, error)
}

// FileStore provides request workspaces and file writes.
type FileStore interface {
	Saver
	NewWorkspace(ctx context.Context, logger *slog.Logger) (*storage.Workspace, error)
}

// Uploader publishes a file and returns its public URL.
type Uploader interface {
	UploadToS3(ctx context.Context, key string, data io.Reader) (string, error)
}

// SourceFile is an uploaded file.
type SourceFile struct {
	// Name is the client-supplied file name.
	Name string
	// Size is the declared size in bytes; zero means unknown, in which case
	// the limit is enforced while the file is written.
	Size int64
	// Open returns the file contents.
	Open func() (io.ReadCloser, error)
}

// saveSource writes f to dst, mapping size violations to ErrFileTooLarge.
func saveSource(ctx context.Context, s Saver, f SourceFile, dst string, limit int64) error {
	if limit > 0 && f.Size > limit {
		return tooLarge(f.Name, limit)
	}
	if f.Open == nil {
		return invalid("file %q has no content", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	if _, err := s.Save(ctx, dst, rc, limit); err != nil {
		if errors.Is(err, storage.ErrSizeLimit) {
			return tooLarge(f.Name, limit)
		}
		return fmt.Errorf("save %s: %w", f.Name, err)
	}
	return nil
}

func tooLarge(name string, limit int64) error {
	return fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, name, limit)
}

// safeName reduces a client-supplied file name to a plain base name.
func safeName(name, fallback string) string {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || base == "" {
		return fallback
	}
	return base
}

// staticURL maps a file under root to its URL under prefix. Files outside
// root have no URL.
func staticURL(prefix, root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return path.Join(prefix, filepath.ToSlash(rel))
}
