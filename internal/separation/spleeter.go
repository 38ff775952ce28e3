package separation

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// maxStderr bounds how much tool output is kept on errors.
const maxStderr = 4096

// Spleeter runs the spleeter CLI with a two-stem model.
type Spleeter struct {
	path    string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// SpleeterOption configures a Spleeter.
type SpleeterOption func(*Spleeter)

// WithModel sets the spleeter model descriptor. Default: spleeter:2stems.
func WithModel(model string) SpleeterOption {
	return func(s *Spleeter) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTimeout bounds a single separation run. Zero disables the bound.
func WithTimeout(d time.Duration) SpleeterOption {
	return func(s *Spleeter) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpleeterOption {
	return func(s *Spleeter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpleeter creates a Spleeter. If path is empty, "spleeter" is looked up
// in PATH.
func NewSpleeter(path string, opts ...SpleeterOption) *Spleeter {
	if path == "" {
		path = "spleeter"
	}
	s := &Spleeter{
		path:    path,
		model:   "spleeter:2stems",
		timeout: 10 * time.Minute,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Separate runs spleeter on inputPath and verifies the vocals stem exists.
func (s *Spleeter) Separate(ctx context.Context, inputPath, outputDir string) (Result, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return Result{}, &SeparationError{Input: inputPath, Err: fmt.Errorf("input not readable: %w", err)}
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := []string{
		"separate",
		"-p", s.model,
		"-o", outputDir,
		"-f", "{filename}/{instrument}.{codec}", // Pin the layout StemDir relies on
		inputPath,
	}

	s.logger.Info("separating audio",
		slog.String("input", inputPath),
		slog.String("output_dir", outputDir),
		slog.String("model", s.model),
	)
	start := time.Now()

	// #nosec G204 - binary and model are set by configuration, not user input
	cmd := exec.CommandContext(ctx, s.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Worker processes spawned by spleeter can hold stderr open after a kill.
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("spleeter interrupted: %w", ctx.Err())
		}
		return Result{}, &SeparationError{Input: inputPath, Stderr: tail(stderr.String()), Err: err}
	}

	res := ExpectedResult(outputDir, inputPath)
	if _, err := os.Stat(res.VocalsPath); err != nil {
		return Result{}, &SeparationError{
			Input:  inputPath,
			Stderr: tail(stderr.String()),
			Err:    fmt.Errorf("%w: %s", ErrVocalsMissing, res.VocalsPath),
		}
	}
	if _, err := os.Stat(res.AccompanimentPath); err != nil {
		s.logger.Warn("accompaniment stem not found",
			slog.String("expected_path", res.AccompanimentPath),
		)
		res.AccompanimentPath = ""
	}

	s.logger.Info("separation completed",
		slog.String("vocals", res.VocalsPath),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func tail(s string) string {
	if len(s) <= maxStderr {
		return s
	}
	return s[len(s)-maxStderr:]
}

// Verify interface implementation at compile time.
var _ Separator = (*Spleeter)(nil)
