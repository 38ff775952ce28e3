package audio

// MergeOpts configures Merge.
type MergeOpts struct {
	// MinSilenceMs is the shortest quiet run that separates two segments.
	MinSilenceMs int
	// SilenceThreshDB overrides the derived threshold when set.
	SilenceThreshDB *float64
	// FadeMs is the fade-in and fade-out length applied to each segment.
	FadeMs int
	// MinSegmentMs drops non-silent segments shorter than this.
	MinSegmentMs int
}

// DefaultMergeOpts returns the options used by the curation pipeline.
func DefaultMergeOpts() MergeOpts {
	return MergeOpts{
		MinSilenceMs: DefaultMinSilenceMs,
		FadeMs:       DefaultFadeMs,
		MinSegmentMs: DefaultMinClipMs,
	}
}

// Merge removes silence from buf and joins what remains, fading every kept
// segment in and out so the joins do not click. The result has buf's format.
// When no segment is long enough the result is empty, not an error; callers
// decide what an empty merge means.
func Merge(buf Buffer, opts MergeOpts) Buffer {
	out := buf.emptyLike()
	intervals := DetectNonSilent(buf, DetectOpts{
		MinSilenceMs:    opts.MinSilenceMs,
		SilenceThreshDB: ThresholdFor(buf, opts.SilenceThreshDB),
		SeekStepMs:      DefaultSeekStepMs,
	})

	for _, iv := range intervals {
		if iv.Duration() < opts.MinSegmentMs {
			continue
		}
		seg := buf.Slice(iv.StartMs, iv.EndMs)
		fadeFrames := seg.frameAt(opts.FadeMs)
		applyFade(seg, fadeFrames)
		out.Data = append(out.Data, seg.Data...)
	}
	return out
}

// applyFade ramps the first n frames of seg up from silence and the last n
// frames down to silence, linearly in amplitude. n is clamped to the segment.
func applyFade(seg Buffer, n int) {
	frames := seg.Frames()
	if n > frames {
		n = frames
	}
	if n <= 0 {
		return
	}
	for f := 0; f < n; f++ {
		gain := float64(f) / float64(n)
		scaleFrame(seg, f, gain)
		scaleFrame(seg, frames-1-f, gain)
	}
}

func scaleFrame(seg Buffer, frame int, gain float64) {
	base := frame * seg.Channels
	for c := 0; c < seg.Channels; c++ {
		v := float64(seg.Data[base+c]) * gain
		if v < 0 {
			seg.Data[base+c] = int(v - 0.5)
		} else {
			seg.Data[base+c] = int(v + 0.5)
		}
	}
}
