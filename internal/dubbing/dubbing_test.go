package dubbing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/dubvoice-api/internal/audio"
	"github.com/maauso/dubvoice-api/internal/separation"
	"github.com/maauso/dubvoice-api/internal/storage"
)

// mockSeparator implements separation.Separator. Unless told otherwise it
// writes a vocals stem following the layout contract.
type mockSeparator struct {
	mock.Mock
}

func (m *mockSeparator) Separate(ctx context.Context, inputPath, outputDir string) (separation.Result, error) {
	args := m.Called(ctx, inputPath, outputDir)
	if fn, ok := args.Get(0).(func(context.Context, string, string) separation.Result); ok {
		return fn(ctx, inputPath, outputDir), args.Error(1)
	}
	return args.Get(0).(separation.Result), args.Error(1)
}

// contractResult reports the stems where the layout contract puts them.
func contractResult(_ context.Context, in, out string) separation.Result {
	return separation.ExpectedResult(out, in)
}

// writeStems is a Run hook that materialises the stems for a call.
func writeStems(args mock.Arguments) {
	res := separation.ExpectedResult(args.String(2), args.String(1))
	_ = os.MkdirAll(filepath.Dir(res.VocalsPath), 0o750)
	_ = os.WriteFile(res.VocalsPath, []byte("vocals"), 0o600)
}

// mockCurator implements Curator.
type mockCurator struct {
	mock.Mock
}

func (m *mockCurator) Run(ctx context.Context, track, workDir string) ([]audio.SampleClip, error) {
	args := m.Called(ctx, track, workDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audio.SampleClip), args.Error(1)
}

// curateInto returns a curator result of n clips written under the work
// directory it is called with.
func curateInto(n int) func(ctx context.Context, track, workDir string) ([]audio.SampleClip, error) {
	return func(_ context.Context, _, workDir string) ([]audio.SampleClip, error) {
		clips := make([]audio.SampleClip, n)
		for i := range clips {
			p := filepath.Join(workDir, "split", fmt.Sprintf("merged_part_%d.mp3", i))
			if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
				return nil, err
			}
			if err := os.WriteFile(p, []byte("clip"), 0o600); err != nil {
				return nil, err
			}
			clips[i] = audio.SampleClip{Path: p, DurationMs: 30000}
		}
		return clips, nil
	}
}

// funcCurator adapts a function to Curator.
type funcCurator func(ctx context.Context, track, workDir string) ([]audio.SampleClip, error)

func (f funcCurator) Run(ctx context.Context, track, workDir string) ([]audio.SampleClip, error) {
	return f(ctx, track, workDir)
}

// mockCloner implements Cloner.
type mockCloner struct {
	mock.Mock
}

func (m *mockCloner) CreateVoiceModel(ctx context.Context, name, description string, samplePaths []string) (string, error) {
	args := m.Called(ctx, name, description, samplePaths)
	return args.String(0), args.Error(1)
}

// mockSynthesizer implements Synthesizer.
type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	args := m.Called(ctx, voiceID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// mockProber implements DurationProber.
type mockProber struct {
	mock.Mock
}

func (m *mockProber) Duration(ctx context.Context, path string) (float64, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(float64), args.Error(1)
}

// mockUploader implements Uploader.
type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) UploadToS3(ctx context.Context, key string, data io.Reader) (string, error) {
	args := m.Called(ctx, key, data)
	return args.String(0), args.Error(1)
}

func newLocalStorage(t *testing.T) (*storage.LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	return st, dir
}

func sourceFile(name string, size int64, content []byte) SourceFile {
	return SourceFile{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "expected %s to be empty", dir)
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"voice.mp3":           "voice.mp3",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.wav`: "a b.wav",
		"":                    "fallback",
		"/":                   "fallback",
		"..":                  "fallback",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeName(in, "fallback"), "safeName(%q)", in)
	}
}

func TestStaticURL(t *testing.T) {
	assert.Equal(t, "/extracted_audio/7_tts/3.mp3",
		staticURL(StaticAudioPrefix, "out", filepath.Join("out", "7_tts", "3.mp3")))
	assert.Equal(t, "", staticURL(StaticAudioPrefix, "out", "/elsewhere/x.mp3"))
	assert.Equal(t, "", staticURL(StaticAudioPrefix, "out", ""))
}
