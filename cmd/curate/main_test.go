package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/dubvoice-api/internal/audio"
	"github.com/maauso/dubvoice-api/internal/curation"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCurate_RequiresOneArg(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestCurate_UnknownMode(t *testing.T) {
	_, err := execute(t, "vocals.wav", "--mode", "shuffle")
	assert.ErrorIs(t, err, curation.ErrUnknownMode)
	assert.Equal(t, ExitValidation, exitCode(err))
}

func TestCurate_ModeIsCaseInsensitive(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.wav")

	// The mode is accepted, so validation reaches the file check.
	_, err := execute(t, missing, "--mode", "SEGMENT")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestCurate_InvalidBudget(t *testing.T) {
	_, err := execute(t, "vocals.wav", "--budget", "0")
	require.Error(t, err)
	assert.Equal(t, ExitValidation, exitCode(err))
}

func TestCurate_MissingInput(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "nope.wav"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestCurate_BrokenFFmpeg(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "vocals.wav")
	require.NoError(t, os.WriteFile(input, []byte("not audio"), 0o600))

	_, err := execute(t, input, "--ffmpeg", filepath.Join(dir, "no-such-ffmpeg"))
	require.Error(t, err)
	assert.Equal(t, ExitGeneral, exitCode(err))

	// Default output directory is derived from the input name.
	_, statErr := os.Stat(filepath.Join(dir, "vocals_samples"))
	assert.NoError(t, statErr)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{context.Canceled, ExitInterrupt},
		{fmt.Errorf("run: %w", curation.ErrEmptyMerge), ExitNoAudio},
		{audio.ErrNoSegments, ExitNoAudio},
		{errors.New("boom"), ExitGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "err=%v", tt.err)
	}
}
