// Package audio provides the in-memory audio model and the sample-curation
// primitives: silence detection, segmentation, merging and re-splitting.
package audio

import (
	"context"
	"math"
)

// Defaults shared by the curation stages.
const (
	// DefaultThresholdMarginDB is subtracted from a buffer's reference
	// loudness to derive its silence threshold.
	DefaultThresholdMarginDB = 16.0
	// DefaultMinSilenceMs is the shortest quiet run treated as silence.
	DefaultMinSilenceMs = 500
	// DefaultSeekStepMs is the scan granularity of the silence detector.
	DefaultSeekStepMs = 1
	// DefaultMinClipMs is the shortest non-silent interval kept as a sample.
	DefaultMinClipMs = 1000
	// DefaultFadeMs is the fade applied at both ends of a merged segment.
	DefaultFadeMs = 200
	// DefaultMaxChunkMs caps the duration of a re-split chunk.
	DefaultMaxChunkMs = 30000
	// DefaultSampleBudget caps the number of clips kept per source.
	DefaultSampleBudget = 25
	// DefaultBitrate is the bitrate clips are encoded at.
	DefaultBitrate = "192k"
)

// Buffer is a decoded PCM signal. Data holds interleaved samples at
// BitDepth resolution. A Buffer is treated as immutable once decoded;
// Slice and Merge always return fresh copies.
type Buffer struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Data       []int
}

// Frames returns the number of sample frames (one sample per channel).
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// DurationMillis returns the buffer length in whole milliseconds.
func (b Buffer) DurationMillis() int {
	if b.SampleRate <= 0 {
		return 0
	}
	return int(int64(b.Frames()) * 1000 / int64(b.SampleRate))
}

// IsEmpty reports whether the buffer holds no audio.
func (b Buffer) IsEmpty() bool {
	return b.DurationMillis() == 0
}

// frameAt converts a millisecond offset to a frame index clamped to the buffer.
func (b Buffer) frameAt(ms int) int {
	f := int(int64(ms) * int64(b.SampleRate) / 1000)
	if f < 0 {
		return 0
	}
	if n := b.Frames(); f > n {
		return n
	}
	return f
}

// Slice returns a copy of the audio in [startMs, endMs).
func (b Buffer) Slice(startMs, endMs int) Buffer {
	out := b.emptyLike()
	s, e := b.frameAt(startMs), b.frameAt(endMs)
	if e <= s {
		return out
	}
	out.Data = make([]int, (e-s)*b.Channels)
	copy(out.Data, b.Data[s*b.Channels:e*b.Channels])
	return out
}

// emptyLike returns a zero-length buffer with the same format.
func (b Buffer) emptyLike() Buffer {
	return Buffer{SampleRate: b.SampleRate, Channels: b.Channels, BitDepth: b.BitDepth}
}

// fullScale returns the largest representable amplitude for the bit depth.
func (b Buffer) fullScale() float64 {
	depth := b.BitDepth
	if depth <= 0 {
		depth = 16
	}
	return float64(int64(1) << (depth - 1))
}

// DBFS returns the RMS loudness of the whole buffer relative to full scale.
// A buffer of digital silence reports negative infinity.
func (b Buffer) DBFS() float64 {
	if len(b.Data) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range b.Data {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(b.Data)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/b.fullScale())
}

// Interval is a half-open time range [StartMs, EndMs) on a buffer's timeline.
type Interval struct {
	StartMs int
	EndMs   int
}

// Duration returns the interval length in milliseconds.
func (iv Interval) Duration() int {
	return iv.EndMs - iv.StartMs
}

// SampleClip is a materialised candidate training sample.
type SampleClip struct {
	// Path identifies the clip; it is the clip's storage location.
	Path string
	// DurationMs is the clip length in milliseconds.
	DurationMs int
}

// Paths returns the storage locations of clips, in order.
func Paths(clips []SampleClip) []string {
	paths := make([]string, len(clips))
	for i, c := range clips {
		paths[i] = c.Path
	}
	return paths
}

// Encoder materialises a buffer as an audio file. The output container is
// chosen from the path extension.
type Encoder interface {
	Encode(ctx context.Context, buf Buffer, path string) error
}
