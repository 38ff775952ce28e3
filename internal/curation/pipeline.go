// Package curation turns a raw vocal track into a bounded set of clean
// speech clips suitable for voice cloning.
package curation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maauso/dubvoice-api/internal/audio"
)

// ErrEmptyMerge is returned when a track contains no speech long enough to keep.
var ErrEmptyMerge = errors.New("curation: no speech left after merge")

// ErrUnknownMode is returned by ParseMode for an unsupported mode name.
var ErrUnknownMode = errors.New("curation: unknown mode")

// MergedSampleName is the file the merged track is encoded to, under the
// merged/ subdirectory of the work directory.
const MergedSampleName = "merged_sample.mp3"

// Work directory layout.
const (
	mergedDir = "merged"
	splitDir  = "split"
	partsDir  = "parts"
)

// Mode selects the curation path.
type Mode string

const (
	// ModeMerge merges speech with fades, then re-splits into bounded chunks.
	ModeMerge Mode = "merge"
	// ModeSegment encodes each detected speech interval as its own clip.
	ModeSegment Mode = "segment"
)

// ParseMode validates a mode name. An empty name selects ModeMerge.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeSegment:
		return ModeSegment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Codec decodes arbitrary audio files and encodes buffers.
// media.FFmpegTranscoder satisfies it.
type Codec interface {
	audio.Encoder
	Decode(ctx context.Context, src, scratchDir string) (audio.Buffer, error)
}

// Pipeline curates vocal tracks. It is safe for concurrent use as long as
// each call gets its own work directory.
type Pipeline struct {
	codec        Codec
	mode         Mode
	mergeOpts    audio.MergeOpts
	minSilenceMs int
	segmenter    *audio.Segmenter
	resplitter   *audio.Resplitter
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMode selects the path used by Run.
func WithMode(m Mode) Option {
	return func(p *Pipeline) {
		if m != "" {
			p.mode = m
		}
	}
}

// WithSampleBudget caps the number of clips produced by either path.
func WithSampleBudget(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.segmenter.Budget = n
			p.resplitter.Budget = n
		}
	}
}

// WithMaxChunk sets the longest clip the merge path produces.
func WithMaxChunk(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.resplitter.MaxChunkMs = int(d.Milliseconds())
		}
	}
}

// WithMergeOpts replaces the merge settings.
func WithMergeOpts(opts audio.MergeOpts) Option {
	return func(p *Pipeline) {
		p.mergeOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pipeline with the default bounds.
func New(codec Codec, opts ...Option) *Pipeline {
	p := &Pipeline{
		codec:        codec,
		mode:         ModeMerge,
		mergeOpts:    audio.DefaultMergeOpts(),
		minSilenceMs: audio.DefaultMinSilenceMs,
		segmenter:    audio.NewSegmenter(codec),
		resplitter:   audio.NewResplitter(codec),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the path used by Run.
func (p *Pipeline) Mode() Mode {
	return p.mode
}

// Run curates track with the configured mode.
func (p *Pipeline) Run(ctx context.Context, track, workDir string) ([]audio.SampleClip, error) {
	if p.mode == ModeSegment {
		return p.CurateSegments(ctx, track, workDir)
	}
	return p.Curate(ctx, track, workDir)
}

// Curate merges the speech of track into one faded buffer and re-splits it
// into at most budget chunks. Every artifact is written under workDir; the
// caller removes it once the clips have been consumed.
func (p *Pipeline) Curate(ctx context.Context, track, workDir string) ([]audio.SampleClip, error) {
	buf, err := p.decode(ctx, track, workDir)
	if err != nil {
		return nil, err
	}

	merged := audio.Merge(buf, p.mergeOpts)
	if merged.DurationMillis() == 0 {
		return nil, ErrEmptyMerge
	}

	mergedPath := filepath.Join(workDir, mergedDir, MergedSampleName)
	if err := os.MkdirAll(filepath.Dir(mergedPath), 0o750); err != nil {
		return nil, fmt.Errorf("create merged dir: %w", err)
	}
	if err := p.codec.Encode(ctx, merged, mergedPath); err != nil {
		return nil, fmt.Errorf("encode merged sample: %w", err)
	}

	clips, err := p.resplitter.Resplit(ctx, merged, mergedPath, filepath.Join(workDir, splitDir))
	if err != nil {
		return nil, fmt.Errorf("resplit: %w", err)
	}

	p.logger.Info("curated samples",
		slog.String("track", filepath.Base(track)),
		slog.Int("input_ms", buf.DurationMillis()),
		slog.Int("merged_ms", merged.DurationMillis()),
		slog.Int("clips", len(clips)),
	)
	return clips, nil
}

// CurateSegments encodes the longest-lived speech intervals of track as
// individual clips, without merging.
func (p *Pipeline) CurateSegments(ctx context.Context, track, workDir string) ([]audio.SampleClip, error) {
	buf, err := p.decode(ctx, track, workDir)
	if err != nil {
		return nil, err
	}

	intervals := audio.DetectNonSilent(buf, audio.DetectOpts{
		MinSilenceMs:    p.minSilenceMs,
		SilenceThreshDB: audio.ThresholdFor(buf, p.mergeOpts.SilenceThreshDB),
		SeekStepMs:      audio.DefaultSeekStepMs,
	})

	clips, err := p.segmenter.Segment(ctx, buf, intervals, filepath.Join(workDir, partsDir))
	if err != nil {
		return nil, err
	}

	p.logger.Info("segmented samples",
		slog.String("track", filepath.Base(track)),
		slog.Int("intervals", len(intervals)),
		slog.Int("clips", len(clips)),
	)
	return clips, nil
}

func (p *Pipeline) decode(ctx context.Context, track, workDir string) (audio.Buffer, error) {
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return audio.Buffer{}, fmt.Errorf("create work dir: %w", err)
	}
	buf, err := p.codec.Decode(ctx, track, workDir)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("decode %s: %w", filepath.Base(track), err)
	}
	return buf, nil
}
