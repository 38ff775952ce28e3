// Package separation splits a mixed recording into a vocals stem and an
// accompaniment stem.
package separation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Stem file names written by a separator for each input.
const (
	VocalsFile        = "vocals.wav"
	AccompanimentFile = "accompaniment.wav"
)

// ErrVocalsMissing is wrapped by SeparationError when the separator ran but
// produced no vocals stem.
var ErrVocalsMissing = errors.New("separation: vocals stem missing")

// Result locates the stems produced for one input.
type Result struct {
	VocalsPath        string
	AccompanimentPath string
}

// Separator isolates vocals from background audio.
type Separator interface {
	// Separate writes the stems of inputPath below outputDir following the
	// layout described by StemDir.
	Separate(ctx context.Context, inputPath, outputDir string) (Result, error)
}

// StemDir returns the directory a separator writes inputPath's stems to:
// outputDir/<input file name without extension>.
func StemDir(outputDir, inputPath string) string {
	base := filepath.Base(inputPath)
	return filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base)))
}

// ExpectedResult returns the stem paths the layout contract promises.
func ExpectedResult(outputDir, inputPath string) Result {
	dir := StemDir(outputDir, inputPath)
	return Result{
		VocalsPath:        filepath.Join(dir, VocalsFile),
		AccompanimentPath: filepath.Join(dir, AccompanimentFile),
	}
}

// SeparationError reports a failed separation with the tool's diagnostics.
type SeparationError struct {
	Input  string
	Stderr string
	Err    error
}

func (e *SeparationError) Error() string {
	msg := fmt.Sprintf("separation of %s failed: %v", filepath.Base(e.Input), e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *SeparationError) Unwrap() error {
	return e.Err
}
