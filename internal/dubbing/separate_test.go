package dubbing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/dubvoice-api/internal/separation"
)

func TestStemBase(t *testing.T) {
	tests := map[string]string{
		"interview_audio.mp3": "interview",
		"interview.wav":       "interview",
		"_audio.mp3":          "upload",
		"nested/dir/a_audio":  "a",
	}
	for in, want := range tests {
		assert.Equal(t, want, stemBase(in), "stemBase(%q)", in)
	}
}

func TestSeparationService_Separate(t *testing.T) {
	files, _ := newLocalStorage(t)
	audioDir := t.TempDir()
	sep := &mockSeparator{}
	svc := NewSeparationService(files, sep, audioDir, nil)

	input := filepath.Join(audioDir, "clip.mp3")
	sep.On("Separate", mock.Anything, input, audioDir).Run(writeStems).Return(contractResult, nil).Once()

	res, err := svc.Separate(context.Background(), sourceFile("clip_audio.mp3", 4, []byte("data")))
	require.NoError(t, err)

	assert.FileExists(t, input)
	assert.Equal(t, filepath.Join(audioDir, "clip", "vocals.wav"), res.VocalsPath)
	assert.Equal(t, "/extracted_audio/clip/vocals.wav", res.VocalsURL)
	assert.Equal(t, "/extracted_audio/clip/accompaniment.wav", res.AccompanimentURL)
	sep.AssertExpectations(t)
}

func TestSeparationService_Separate_Errors(t *testing.T) {
	files, _ := newLocalStorage(t)
	audioDir := t.TempDir()
	sep := &mockSeparator{}
	svc := NewSeparationService(files, sep, audioDir, nil)
	svc.SetMaxUploadBytes(3)

	_, err := svc.Separate(context.Background(), SourceFile{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Separate(context.Background(), sourceFile("big.mp3", 0, []byte("too big")))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.NoFileExists(t, filepath.Join(audioDir, "big.mp3"))

	sepErr := &separation.SeparationError{Input: "a.mp3", Err: errors.New("exit status 1")}
	sep.On("Separate", mock.Anything, mock.Anything, mock.Anything).Return(separation.Result{}, sepErr).Once()
	_, err = svc.Separate(context.Background(), sourceFile("a.mp3", 1, []byte("a")))
	var target *separation.SeparationError
	assert.ErrorAs(t, err, &target)
}
