package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/maauso/dubvoice-api/internal/audio"
)

// Static errors for media operations.
var (
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrEmptyPath is returned when a source or destination path is missing.
	ErrEmptyPath = errors.New("media: empty path")
)

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	bitrate     string
}

// Option configures an FFmpegTranscoder.
type Option func(*FFmpegTranscoder)

// WithFFprobePath sets the ffprobe binary.
func WithFFprobePath(path string) Option {
	return func(t *FFmpegTranscoder) {
		if path != "" {
			t.ffprobePath = path
		}
	}
}

// WithBitrate sets the bitrate used for compressed output.
func WithBitrate(bitrate string) Option {
	return func(t *FFmpegTranscoder) {
		if bitrate != "" {
			t.bitrate = bitrate
		}
	}
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegTranscoder(ffmpegPath string, opts ...Option) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	t := &FFmpegTranscoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: "ffprobe",
		bitrate:     audio.DefaultBitrate,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ToWAV converts src to a 16-bit PCM WAV at dst. Video streams are dropped.
func (t *FFmpegTranscoder) ToWAV(ctx context.Context, src, dst string) error {
	if src == "" || dst == "" {
		return ErrEmptyPath
	}
	args := []string{
		"-y",                   // Overwrite output file without asking
		"-i", src,              // Input file
		"-vn",                  // Drop video
		"-acodec", "pcm_s16le", // 16-bit little endian PCM
		dst,
	}
	return t.runFFmpeg(ctx, args)
}

// Decode normalises src to WAV inside scratchDir and reads it back.
func (t *FFmpegTranscoder) Decode(ctx context.Context, src, scratchDir string) (audio.Buffer, error) {
	if err := os.MkdirAll(scratchDir, 0o750); err != nil {
		return audio.Buffer{}, fmt.Errorf("create scratch directory: %w", err)
	}
	f, err := os.CreateTemp(scratchDir, "decode-*.wav")
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("create temp file: %w", err)
	}
	wavPath := f.Name()
	_ = f.Close()
	defer func() { _ = os.Remove(wavPath) }()

	if err := t.ToWAV(ctx, src, wavPath); err != nil {
		return audio.Buffer{}, err
	}

	buf, err := audio.ReadWAV(wavPath)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}
	return buf, nil
}

// Encode writes buf to path. Non-WAV targets go through an intermediate WAV
// that is removed afterwards.
func (t *FFmpegTranscoder) Encode(ctx context.Context, buf audio.Buffer, path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return audio.WriteWAV(path, buf)
	}

	tmp := path + ".src.wav"
	if err := audio.WriteWAV(tmp, buf); err != nil {
		return fmt.Errorf("write intermediate wav: %w", err)
	}
	defer func() { _ = os.Remove(tmp) }()

	args := []string{
		"-y",
		"-i", tmp,
		"-b:a", t.bitrate, // Target bitrate; codec follows the extension
		path,
	}
	return t.runFFmpeg(ctx, args)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (t *FFmpegTranscoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Duration returns the duration in seconds of a media file.
// It uses ffprobe to extract the duration metadata.
func (t *FFmpegTranscoder) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// Verify interface implementation at compile time.
var (
	_ Transcoder    = (*FFmpegTranscoder)(nil)
	_ audio.Encoder = (*FFmpegTranscoder)(nil)
)
