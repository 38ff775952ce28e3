package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrEmptyBuffer is returned when there is no audio to split.
var ErrEmptyBuffer = errors.New("audio: empty buffer")

// Resplitter bounds the duration of training samples by cutting a merged
// track into fixed-length chunks and keeping an evenly spread subset.
type Resplitter struct {
	Encoder Encoder
	// MaxChunkMs is the longest chunk produced. Default: 30000.
	MaxChunkMs int
	// Budget caps the number of chunks kept. Default: 25.
	Budget int
}

// NewResplitter creates a Resplitter with default bounds.
func NewResplitter(enc Encoder) *Resplitter {
	return &Resplitter{
		Encoder:    enc,
		MaxChunkMs: DefaultMaxChunkMs,
		Budget:     DefaultSampleBudget,
	}
}

// ChunkIntervals plans ceil(duration/maxChunk) contiguous chunks covering
// [0, duration). Every chunk is maxChunk long except possibly the last.
func ChunkIntervals(durationMs, maxChunkMs int) []Interval {
	if durationMs <= 0 {
		return nil
	}
	if maxChunkMs <= 0 || durationMs <= maxChunkMs {
		return []Interval{{StartMs: 0, EndMs: durationMs}}
	}
	n := (durationMs + maxChunkMs - 1) / maxChunkMs
	chunks := make([]Interval, n)
	for i := range chunks {
		end := (i + 1) * maxChunkMs
		if end > durationMs {
			end = durationMs
		}
		chunks[i] = Interval{StartMs: i * maxChunkMs, EndMs: end}
	}
	return chunks
}

// Resplit returns buf as bounded clips. A buffer that already fits in one
// chunk is returned as-is, identified by sourcePath, without re-encoding.
// Otherwise the selected chunks are encoded to outDir/merged_part_<n>.mp3.
func (r *Resplitter) Resplit(ctx context.Context, buf Buffer, sourcePath, outDir string) ([]SampleClip, error) {
	total := buf.DurationMillis()
	if total == 0 {
		return nil, ErrEmptyBuffer
	}
	if r.MaxChunkMs <= 0 || total <= r.MaxChunkMs {
		return []SampleClip{{Path: sourcePath, DurationMs: total}}, nil
	}

	chunks := ChunkIntervals(total, r.MaxChunkMs)
	picks := UniformIndices(len(chunks), r.Budget)
	jobs := make([]clipJob, len(picks))
	for i, idx := range picks {
		jobs[i] = clipJob{
			interval: chunks[idx],
			path:     filepath.Join(outDir, fmt.Sprintf("merged_part_%d.mp3", idx)),
		}
	}

	return encodeClips(ctx, r.Encoder, buf, jobs, outDir)
}
