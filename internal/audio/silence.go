package audio

import "math"

// DetectOpts configures non-silence detection.
type DetectOpts struct {
	// MinSilenceMs is the window length; a quiet run shorter than this is
	// not considered silence.
	MinSilenceMs int
	// SilenceThreshDB is the loudness at or below which a window is silent.
	// Use ThresholdFor to derive it from the buffer.
	SilenceThreshDB float64
	// SeekStepMs is the distance between successive window starts.
	SeekStepMs int
}

// ThresholdFor returns the silence threshold to use for buf. An explicit
// override wins; otherwise the threshold sits DefaultThresholdMarginDB below
// the buffer's own loudness, so quiet and loud recordings are judged alike.
func ThresholdFor(buf Buffer, override *float64) float64 {
	if override != nil {
		return *override
	}
	return buf.DBFS() - DefaultThresholdMarginDB
}

// DetectNonSilent returns the sorted, non-overlapping, non-empty intervals of
// buf that are not silence. A buffer without silence yields a single interval
// covering it; a buffer that is entirely silent yields none.
func DetectNonSilent(buf Buffer, opts DetectOpts) []Interval {
	total := buf.DurationMillis()
	if total == 0 {
		return nil
	}

	silent := detectSilence(buf, opts, total)
	if len(silent) == 0 {
		return []Interval{{StartMs: 0, EndMs: total}}
	}
	if silent[0].StartMs == 0 && silent[0].EndMs >= total {
		return nil
	}

	var out []Interval
	prevEnd := 0
	for _, s := range silent {
		if s.StartMs > prevEnd {
			out = append(out, Interval{StartMs: prevEnd, EndMs: s.StartMs})
		}
		prevEnd = s.EndMs
	}
	if prevEnd < total {
		out = append(out, Interval{StartMs: prevEnd, EndMs: total})
	}
	return out
}

// detectSilence returns the silent runs of buf.
func detectSilence(buf Buffer, opts DetectOpts, total int) []Interval {
	window := opts.MinSilenceMs
	if window <= 0 {
		window = 1
	}
	step := opts.SeekStepMs
	if step <= 0 {
		step = DefaultSeekStepMs
	}
	if total < window {
		return nil
	}

	limit := math.Pow(10, opts.SilenceThreshDB/20) * buf.fullScale()
	energy := energyPrefix(buf)

	isSilent := func(startMs int) bool {
		s, e := buf.frameAt(startMs), buf.frameAt(startMs+window)
		if e <= s {
			return true
		}
		mean := (energy[e] - energy[s]) / float64((e-s)*buf.Channels)
		return math.Sqrt(math.Max(mean, 0)) <= limit
	}

	last := total - window
	var starts []int
	for i := 0; i <= last; i += step {
		if isSilent(i) {
			starts = append(starts, i)
		}
	}
	// The last window is evaluated even when it falls off the step grid.
	if last%step != 0 && isSilent(last) {
		starts = append(starts, last)
	}
	if len(starts) == 0 {
		return nil
	}

	var runs []Interval
	runStart, prev := starts[0], starts[0]
	for _, cur := range starts[1:] {
		continuous := cur == prev+step
		gap := cur > prev+window
		if !continuous && gap {
			runs = append(runs, Interval{StartMs: runStart, EndMs: prev + window})
			runStart = cur
		}
		prev = cur
	}
	runs = append(runs, Interval{StartMs: runStart, EndMs: prev + window})
	return runs
}

// energyPrefix returns cumulative per-frame sums of squared samples, so the
// energy of frames [s, e) is energy[e] - energy[s].
func energyPrefix(buf Buffer) []float64 {
	frames := buf.Frames()
	energy := make([]float64, frames+1)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < buf.Channels; c++ {
			v := float64(buf.Data[f*buf.Channels+c])
			sum += v * v
		}
		energy[f+1] = energy[f] + sum
	}
	return energy
}
