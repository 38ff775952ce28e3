package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strictMerge() MergeOpts {
	opts := DefaultMergeOpts()
	thresh := strict
	opts.SilenceThreshDB = &thresh
	return opts
}

func TestMerge_KeepsOnlyLongSegments(t *testing.T) {
	buf := synth(tone(2000), silence(1000), tone(500), silence(1000), tone(1500))

	out := Merge(buf, strictMerge())

	assert.Equal(t, 3500, out.DurationMillis())
	assert.Equal(t, buf.SampleRate, out.SampleRate)
	assert.Equal(t, buf.Channels, out.Channels)
	assert.Equal(t, buf.BitDepth, out.BitDepth)
}

func TestMerge_NothingSurvives(t *testing.T) {
	buf := synth(tone(800), silence(1000), tone(700), silence(600), tone(999))

	out := Merge(buf, strictMerge())

	assert.Equal(t, 0, out.DurationMillis())
	assert.True(t, out.IsEmpty())
	assert.Equal(t, testRate, out.SampleRate)
}

func TestMerge_AllSilence(t *testing.T) {
	out := Merge(synth(silence(5000)), DefaultMergeOpts())
	assert.True(t, out.IsEmpty())
}

func TestMerge_FadesSegmentEdges(t *testing.T) {
	buf := synth(tone(1000), silence(1000), tone(1000))

	out := Merge(buf, strictMerge())

	assert.Equal(t, 2000, out.DurationMillis())
	// Each segment starts from silence, is half way up at 100 ms and at
	// full level once the 200 ms fade is over.
	assert.Equal(t, 0, out.Data[0])
	assert.Equal(t, 5000, abs(out.Data[100]))
	assert.Equal(t, 10000, abs(out.Data[500]))
	assert.Equal(t, 0, out.Data[999])
	assert.Equal(t, 0, out.Data[1000])
	assert.Equal(t, 10000, abs(out.Data[1500]))
}

func TestMerge_FadeClampedToSegment(t *testing.T) {
	opts := strictMerge()
	opts.FadeMs = 5000

	out := Merge(synth(tone(1200)), opts)

	assert.Equal(t, 1200, out.DurationMillis())
	assert.Equal(t, 0, out.Data[0])
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	buf := synth(tone(2000))
	first := buf.Data[0]

	_ = Merge(buf, strictMerge())

	assert.Equal(t, first, buf.Data[0])
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
