package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSegments is returned when no interval is long enough to be a sample.
var ErrNoSegments = errors.New("audio: no usable segments")

// Segmenter cuts non-silent intervals out of a buffer and encodes a bounded,
// evenly spread subset of them as sample clips.
type Segmenter struct {
	Encoder Encoder
	// MinClipMs drops intervals shorter than this. Default: 1000.
	MinClipMs int
	// Budget caps the number of clips produced. Default: 25.
	Budget int
}

// NewSegmenter creates a Segmenter with default bounds.
func NewSegmenter(enc Encoder) *Segmenter {
	return &Segmenter{
		Encoder:   enc,
		MinClipMs: DefaultMinClipMs,
		Budget:    DefaultSampleBudget,
	}
}

// Segment encodes the selected intervals to outDir/part_<n>.mp3, where n is
// the interval's position among the survivors of the length filter. Clips are
// returned in timeline order.
func (s *Segmenter) Segment(ctx context.Context, buf Buffer, intervals []Interval, outDir string) ([]SampleClip, error) {
	var survivors []Interval
	for _, iv := range intervals {
		if iv.Duration() >= s.MinClipMs {
			survivors = append(survivors, iv)
		}
	}
	if len(survivors) == 0 {
		return nil, ErrNoSegments
	}

	// Selecting before encoding gives the same clips as encoding every
	// survivor and sampling afterwards.
	picks := UniformIndices(len(survivors), s.Budget)
	jobs := make([]clipJob, len(picks))
	for i, idx := range picks {
		jobs[i] = clipJob{
			interval: survivors[idx],
			path:     filepath.Join(outDir, fmt.Sprintf("part_%d.mp3", idx)),
		}
	}

	return encodeClips(ctx, s.Encoder, buf, jobs, outDir)
}

// clipJob is one interval to materialise at path.
type clipJob struct {
	interval Interval
	path     string
}

// encodeClips encodes every job in order. On failure the clips already
// written are removed.
func encodeClips(ctx context.Context, enc Encoder, buf Buffer, jobs []clipJob, outDir string) ([]SampleClip, error) {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	clips := make([]SampleClip, 0, len(jobs))
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			removeClips(clips)
			return nil, err
		}
		if err := enc.Encode(ctx, buf.Slice(job.interval.StartMs, job.interval.EndMs), job.path); err != nil {
			removeClips(clips)
			return nil, fmt.Errorf("encode clip %d: %w", i, err)
		}
		clips = append(clips, SampleClip{Path: job.path, DurationMs: job.interval.Duration()})
	}
	return clips, nil
}

func removeClips(clips []SampleClip) {
	for _, c := range clips {
		_ = os.Remove(c.Path)
	}
}
