package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a file is not a readable PCM WAV.
var ErrInvalidWAV = errors.New("audio: invalid WAV file")

// ReadWAV decodes a PCM WAV file into a Buffer.
func ReadWAV(path string) (Buffer, error) {
	f, err := os.Open(path) // #nosec G304 - path is produced by the pipeline
	if err != nil {
		return Buffer{}, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Buffer{}, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("read pcm: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 || pcm.Format.SampleRate <= 0 {
		return Buffer{}, fmt.Errorf("%w: missing format in %s", ErrInvalidWAV, path)
	}

	return Buffer{
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
		BitDepth:   int(dec.BitDepth),
		Data:       pcm.Data,
	}, nil
}

// WriteWAV encodes buf as a PCM WAV file at path.
func WriteWAV(path string, buf Buffer) error {
	if buf.SampleRate <= 0 || buf.Channels <= 0 {
		return fmt.Errorf("%w: sample rate %d, channels %d", ErrInvalidWAV, buf.SampleRate, buf.Channels)
	}
	depth := buf.BitDepth
	if depth <= 0 {
		depth = 16
	}

	f, err := os.Create(path) // #nosec G304 - path is produced by the pipeline
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, depth, buf.Channels, 1)
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: buf.Channels, SampleRate: buf.SampleRate},
		Data:           buf.Data,
		SourceBitDepth: depth,
	}
	if err := enc.Write(pcm); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write pcm: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}
