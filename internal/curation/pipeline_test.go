package curation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/dubvoice-api/internal/audio"
)

// speech and pause build a mono 1 kHz buffer, one frame per millisecond.
type span struct {
	ms  int
	amp int
}

func speech(ms int) span { return span{ms: ms, amp: 10000} }
func pause(ms int) span  { return span{ms: ms} }

func track(spans ...span) audio.Buffer {
	buf := audio.Buffer{SampleRate: 1000, Channels: 1, BitDepth: 16}
	for _, s := range spans {
		for i := 0; i < s.ms; i++ {
			v := s.amp
			if len(buf.Data)%2 == 1 {
				v = -v
			}
			buf.Data = append(buf.Data, v)
		}
	}
	return buf
}

// fakeCodec returns a fixed buffer and writes placeholder files on encode.
type fakeCodec struct {
	buf       audio.Buffer
	decodeErr error
	encodeErr error

	mu      sync.Mutex
	encoded []string
}

func (c *fakeCodec) Decode(_ context.Context, _, _ string) (audio.Buffer, error) {
	if c.decodeErr != nil {
		return audio.Buffer{}, c.decodeErr
	}
	return c.buf, nil
}

func (c *fakeCodec) Encode(_ context.Context, _ audio.Buffer, path string) error {
	if c.encodeErr != nil {
		return c.encodeErr
	}
	c.mu.Lock()
	c.encoded = append(c.encoded, path)
	c.mu.Unlock()
	return os.WriteFile(path, []byte("mp3"), 0o600)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeMerge, m)

	m, err = ParseMode("segment")
	require.NoError(t, err)
	assert.Equal(t, ModeSegment, m)

	_, err = ParseMode("shuffle")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestCurate_ShortTrackIsSingleMergedSample(t *testing.T) {
	codec := &fakeCodec{buf: track(speech(2000), pause(1000), speech(1500))}
	workDir := t.TempDir()

	clips, err := New(codec).Curate(context.Background(), "vocals.wav", workDir)
	require.NoError(t, err)

	mergedPath := filepath.Join(workDir, "merged", MergedSampleName)
	require.Len(t, clips, 1)
	assert.Equal(t, mergedPath, clips[0].Path)
	// The pause is removed; both speech runs survive with a few ms of edge.
	assert.InDelta(t, 3500, clips[0].DurationMs, 30)
	assert.Equal(t, []string{mergedPath}, codec.encoded)
}

func TestCurate_ResplitsLongMerge(t *testing.T) {
	codec := &fakeCodec{buf: track(speech(2000), pause(1000), speech(1500))}
	workDir := t.TempDir()

	p := New(codec, WithMaxChunk(time.Second))
	clips, err := p.Curate(context.Background(), "vocals.wav", workDir)
	require.NoError(t, err)

	require.Len(t, clips, 4)
	assert.Equal(t,
		[]string{"merged_part_0.mp3", "merged_part_1.mp3", "merged_part_2.mp3", "merged_part_3.mp3"},
		listDir(t, filepath.Join(workDir, "split")))
	for _, c := range clips[:3] {
		assert.Equal(t, 1000, c.DurationMs)
	}
	assert.Positive(t, clips[3].DurationMs)
	assert.LessOrEqual(t, clips[3].DurationMs, 1000)
}

func TestCurate_BudgetLimitsChunks(t *testing.T) {
	codec := &fakeCodec{buf: track(speech(2000), pause(1000), speech(1500))}
	workDir := t.TempDir()

	p := New(codec, WithMaxChunk(time.Second), WithSampleBudget(2))
	clips, err := p.Curate(context.Background(), "vocals.wav", workDir)
	require.NoError(t, err)

	require.Len(t, clips, 2)
	assert.Equal(t, filepath.Join(workDir, "split", "merged_part_0.mp3"), clips[0].Path)
	assert.Equal(t, filepath.Join(workDir, "split", "merged_part_3.mp3"), clips[1].Path)
}

func TestCurate_EmptyMerge(t *testing.T) {
	tests := []struct {
		name string
		buf  audio.Buffer
	}{
		{name: "all silence", buf: track(pause(3000))},
		{name: "only short bursts", buf: track(speech(400), pause(800), speech(600), pause(800))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := &fakeCodec{buf: tt.buf}
			_, err := New(codec).Curate(context.Background(), "vocals.wav", t.TempDir())
			assert.ErrorIs(t, err, ErrEmptyMerge)
			assert.Empty(t, codec.encoded)
		})
	}
}

func TestCurate_DecodeError(t *testing.T) {
	codec := &fakeCodec{decodeErr: errors.New("ffmpeg missing")}
	_, err := New(codec).Curate(context.Background(), "vocals.wav", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode vocals.wav")
}

func TestCurate_EncodeError(t *testing.T) {
	codec := &fakeCodec{
		buf:       track(speech(2000)),
		encodeErr: errors.New("disk full"),
	}
	_, err := New(codec).Curate(context.Background(), "vocals.wav", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode merged sample")
}

func TestCurateSegments(t *testing.T) {
	codec := &fakeCodec{buf: track(speech(2000), pause(1000), speech(1500), pause(1000), speech(300))}
	workDir := t.TempDir()

	clips, err := New(codec).CurateSegments(context.Background(), "vocals.wav", workDir)
	require.NoError(t, err)

	require.Len(t, clips, 2)
	assert.Equal(t, []string{"part_0.mp3", "part_1.mp3"}, listDir(t, filepath.Join(workDir, "parts")))
	assert.InDelta(t, 2000, clips[0].DurationMs, 15)
	assert.InDelta(t, 1500, clips[1].DurationMs, 30)
}

func TestCurateSegments_NoSegments(t *testing.T) {
	codec := &fakeCodec{buf: track(pause(2000))}
	_, err := New(codec).CurateSegments(context.Background(), "vocals.wav", t.TempDir())
	assert.ErrorIs(t, err, audio.ErrNoSegments)
}

func TestRun_DispatchesOnMode(t *testing.T) {
	buf := track(speech(2000), pause(1000), speech(1500))

	workDir := t.TempDir()
	_, err := New(&fakeCodec{buf: buf}, WithMode(ModeSegment)).Run(context.Background(), "v.wav", workDir)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(workDir, "parts"))
	assert.NoDirExists(t, filepath.Join(workDir, "merged"))

	workDir = t.TempDir()
	p := New(&fakeCodec{buf: buf})
	assert.Equal(t, ModeMerge, p.Mode())
	_, err = p.Run(context.Background(), "v.wav", workDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(workDir, "merged", MergedSampleName))
}
