// Package media wraps the ffmpeg and ffprobe command-line tools.
package media

import (
	"context"

	"github.com/maauso/dubvoice-api/internal/audio"
)

// Transcoder defines the audio conversions the service delegates to ffmpeg.
type Transcoder interface {
	// ToWAV normalises any audio or video input to a 16-bit PCM WAV at dst,
	// keeping the source sample rate and channel layout.
	ToWAV(ctx context.Context, src, dst string) error

	// Decode normalises src and loads it as an audio.Buffer. Intermediate
	// files are written under scratchDir and removed before returning.
	Decode(ctx context.Context, src, scratchDir string) (audio.Buffer, error)

	// Encode writes buf to path. A .wav path is written directly; any other
	// extension is encoded by ffmpeg at the configured bitrate.
	Encode(ctx context.Context, buf audio.Buffer, path string) error

	// Duration returns the duration in seconds of a media file.
	Duration(ctx context.Context, path string) (float64, error)
}
