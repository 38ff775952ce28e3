package dubbing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/dubvoice-api/internal/audio"
	"github.com/maauso/dubvoice-api/internal/curation"
	"github.com/maauso/dubvoice-api/internal/metrics"
	"github.com/maauso/dubvoice-api/internal/separation"
	"github.com/maauso/dubvoice-api/internal/store"
)

type builderFixture struct {
	builder   *VoiceModelBuilder
	separator *mockSeparator
	cloner    *mockCloner
	store     *store.MemoryStore
	tempDir   string
}

func newBuilderFixture(t *testing.T, curator Curator) *builderFixture {
	t.Helper()
	files, tempDir := newLocalStorage(t)
	f := &builderFixture{
		separator: &mockSeparator{},
		cloner:    &mockCloner{},
		store:     store.NewMemoryStore(),
		tempDir:   tempDir,
	}
	f.builder = NewVoiceModelBuilder(files, f.separator, curator, f.cloner, f.store, nil)
	f.builder.SetMetrics(metrics.New())
	return f
}

// expectSeparation makes every Separate call succeed with the contract layout.
func (f *builderFixture) expectSeparation() {
	f.separator.On("Separate", mock.Anything, mock.Anything, mock.Anything).
		Run(writeStems).
		Return(contractResult, nil).
		Maybe()
}

func TestVoiceModelBuilder_Build(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(2)))
	f.separator.On("Separate", mock.Anything, mock.Anything, mock.Anything).
		Run(writeStems).
		Return(contractResult, nil)

	var sent []string
	f.cloner.On("CreateVoiceModel", mock.Anything, "Narrator", "Warm", mock.Anything).
		Run(func(args mock.Arguments) {
			sent = args.Get(3).([]string)
			for _, p := range sent {
				assert.FileExists(t, p, "clips must exist while cloning")
			}
		}).
		Return("voice-123", nil).Once()

	model, err := f.builder.Build(context.Background(), BuildInput{
		Name:        "Narrator",
		Description: "Warm",
		Files: []SourceFile{
			sourceFile("a.mp3", 5, []byte("aaaaa")),
			sourceFile("b.mp3", 5, []byte("bbbbb")),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "voice-123", model.VoiceID)
	assert.NotZero(t, model.ID)
	require.Len(t, sent, 4)
	assert.Contains(t, sent[0], "file-0")
	assert.Contains(t, sent[3], "file-1")

	models, _ := f.store.ListVoiceModels(context.Background())
	require.Len(t, models, 1)
	assert.Equal(t, "Narrator", models[0].Name)

	f.separator.AssertNumberOfCalls(t, "Separate", 2)
	f.cloner.AssertExpectations(t)
	assertEmptyDir(t, f.tempDir)
}

func TestVoiceModelBuilder_Build_Validation(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(1)))

	_, err := f.builder.Build(context.Background(), BuildInput{Files: []SourceFile{sourceFile("a.mp3", 1, []byte("a"))}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.builder.Build(context.Background(), BuildInput{Name: "n"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVoiceModelBuilder_Build_DeclaredOversizedFile(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(1)))
	f.builder.SetMaxUploadBytes(10)

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name: "n",
		Files: []SourceFile{
			sourceFile("small.mp3", 5, []byte("small")),
			sourceFile("big.mp3", 11, []byte("01234567890")),
		},
	})

	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Contains(t, err.Error(), "big.mp3")
	f.separator.AssertNotCalled(t, "Separate", mock.Anything, mock.Anything, mock.Anything)
	f.cloner.AssertNotCalled(t, "CreateVoiceModel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assertEmptyDir(t, f.tempDir)
}

func TestVoiceModelBuilder_Build_StreamedOversizedSecondFile(t *testing.T) {
	var curated int32
	curator := funcCurator(func(ctx context.Context, track, workDir string) ([]audio.SampleClip, error) {
		atomic.AddInt32(&curated, 1)
		return curateInto(3)(ctx, track, workDir)
	})
	f := newBuilderFixture(t, curator)
	f.builder.SetMaxUploadBytes(10)
	f.separator.On("Separate", mock.Anything, mock.Anything, mock.Anything).
		Run(writeStems).
		Return(contractResult, nil)

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name: "n",
		Files: []SourceFile{
			sourceFile("first.mp3", 0, []byte("first")),
			sourceFile("second.mp3", 0, []byte("this is far too long")),
		},
	})

	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.EqualValues(t, 1, atomic.LoadInt32(&curated), "first file is fully processed")
	f.separator.AssertNumberOfCalls(t, "Separate", 1)
	f.cloner.AssertNotCalled(t, "CreateVoiceModel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	// The first file's upload, stems and clips are gone.
	assertEmptyDir(t, f.tempDir)
}

func TestVoiceModelBuilder_Build_SeparationFailureAborts(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(1)))
	sepErr := &separation.SeparationError{Input: "a.mp3", Err: separation.ErrVocalsMissing}
	f.separator.On("Separate", mock.Anything, mock.Anything, mock.Anything).
		Return(separation.Result{}, sepErr).Once()

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name: "n",
		Files: []SourceFile{
			sourceFile("a.mp3", 1, []byte("a")),
			sourceFile("b.mp3", 1, []byte("b")),
		},
	})

	var target *separation.SeparationError
	require.ErrorAs(t, err, &target)
	f.separator.AssertNumberOfCalls(t, "Separate", 1)
	f.cloner.AssertNotCalled(t, "CreateVoiceModel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assertEmptyDir(t, f.tempDir)
}

func TestVoiceModelBuilder_Build_CurationFailureAborts(t *testing.T) {
	curator := &mockCurator{}
	curator.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, curation.ErrEmptyMerge).Once()
	f := newBuilderFixture(t, curator)
	f.expectSeparation()

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name:  "n",
		Files: []SourceFile{sourceFile("a.mp3", 1, []byte("a")), sourceFile("b.mp3", 1, []byte("b"))},
	})

	require.ErrorIs(t, err, curation.ErrEmptyMerge)
	curator.AssertNumberOfCalls(t, "Run", 1)
	assertEmptyDir(t, f.tempDir)
}

func TestVoiceModelBuilder_Build_NoSamples(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(0)))
	f.expectSeparation()

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name:  "n",
		Files: []SourceFile{sourceFile("a.mp3", 1, []byte("a"))},
	})

	require.ErrorIs(t, err, ErrNoSamplesProduced)
	f.cloner.AssertNotCalled(t, "CreateVoiceModel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVoiceModelBuilder_Build_CloneFailures(t *testing.T) {
	tests := []struct {
		name    string
		voiceID string
		err     error
		want    error
	}{
		{name: "empty voice id", want: ErrNoVoiceID},
		{name: "upstream error", err: errors.New("402 quota"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBuilderFixture(t, funcCurator(curateInto(1)))
			f.expectSeparation()
			f.cloner.On("CreateVoiceModel", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(tt.voiceID, tt.err).Once()

			_, err := f.builder.Build(context.Background(), BuildInput{
				Name:  "n",
				Files: []SourceFile{sourceFile("a.mp3", 1, []byte("a"))},
			})

			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.True(t, strings.HasPrefix(err.Error(), "create voice model"))
			models, _ := f.store.ListVoiceModels(context.Background())
			assert.Empty(t, models)
			assertEmptyDir(t, f.tempDir)
		})
	}
}

func TestVoiceModelBuilder_Build_ConcurrentKeepsFileOrder(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(2)))
	f.builder.SetConcurrency(3)
	f.separator.On("Separate", mock.Anything, mock.Anything, mock.Anything).
		Run(writeStems).
		Return(contractResult, nil)

	var sent []string
	f.cloner.On("CreateVoiceModel", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(3).([]string) }).
		Return("v", nil).Once()

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name: "n",
		Files: []SourceFile{
			sourceFile("a.mp3", 1, []byte("a")),
			sourceFile("b.mp3", 1, []byte("b")),
			sourceFile("c.mp3", 1, []byte("c")),
		},
	})
	require.NoError(t, err)

	require.Len(t, sent, 6)
	for i, p := range sent {
		want := filepath.Join(fmt.Sprintf("file-%d", i/2), "curate")
		assert.Contains(t, p, want)
	}
	f.cloner.AssertNumberOfCalls(t, "CreateVoiceModel", 1)
	assertEmptyDir(t, f.tempDir)
}

func TestVoiceModelBuilder_Build_ConcurrentFailureAborts(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(1)))
	f.builder.SetConcurrency(2)
	f.separator.On("Separate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "file-1")
	}), mock.Anything).Return(separation.Result{}, errors.New("spleeter crashed"))
	f.expectSeparation()

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name: "n",
		Files: []SourceFile{
			sourceFile("good.mp3", 1, []byte("g")),
			sourceFile("bad.mp3", 1, []byte("b")),
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "separate bad.mp3")
	f.cloner.AssertNotCalled(t, "CreateVoiceModel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assertEmptyDir(t, f.tempDir)
}

func TestVoiceModelBuilder_Build_UploadWithoutExtension(t *testing.T) {
	f := newBuilderFixture(t, funcCurator(curateInto(1)))
	var inputs []string
	f.separator.On("Separate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			inputs = append(inputs, args.String(1))
			writeStems(args)
		}).
		Return(contractResult, nil)
	f.cloner.On("CreateVoiceModel", mock.Anything, "n", "", mock.Anything).Return("voice-1", nil).Once()

	_, err := f.builder.Build(context.Background(), BuildInput{
		Name: "n",
		Files: []SourceFile{
			sourceFile("recording", 3, []byte("abc")),
			sourceFile("Take.WAV", 3, []byte("abc")),
		},
	})
	require.NoError(t, err)

	require.Len(t, inputs, 2)
	assert.Equal(t, "input.mp3", filepath.Base(inputs[0]))
	assert.Equal(t, "input.wav", filepath.Base(inputs[1]))
	assertEmptyDir(t, f.tempDir)
}
