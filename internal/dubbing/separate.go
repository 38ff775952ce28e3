package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/dubvoice-api/internal/metrics"
	"github.com/maauso/dubvoice-api/internal/separation"
)

// SeparationResult locates the stems of a separated upload.
type SeparationResult struct {
	separation.Result
	VocalsURL        string
	AccompanimentURL string
}

// SeparationService separates uploaded recordings into the audio directory.
type SeparationService struct {
	files     Saver
	separator separation.Separator
	audioDir  string
	metrics   *metrics.Metrics
	logger    *slog.Logger

	maxUploadBytes int64
}

// NewSeparationService creates a SeparationService writing under audioDir.
func NewSeparationService(files Saver, separator separation.Separator, audioDir string, logger *slog.Logger) *SeparationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeparationService{
		files:          files,
		separator:      separator,
		audioDir:       audioDir,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// SetMaxUploadBytes sets the size limit for uploads.
func (s *SeparationService) SetMaxUploadBytes(n int64) {
	if n > 0 {
		s.maxUploadBytes = n
	}
}

// SetMetrics enables instrumentation.
func (s *SeparationService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Separate stores f as <audioDir>/<base>.mp3 and separates it. A trailing
// "_audio" is dropped from the base name, so the stems of video_audio.mp3
// land in <audioDir>/video/.
func (s *SeparationService) Separate(ctx context.Context, f SourceFile) (*SeparationResult, error) {
	if f.Name == "" {
		return nil, invalid("file is required")
	}

	dst := filepath.Join(s.audioDir, stemBase(f.Name)+".mp3")
	if err := saveSource(ctx, s.files, f, dst, s.maxUploadBytes); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.separator.Separate(ctx, dst, s.audioDir)
	s.metrics.RecordStage(metrics.StageSeparation, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("separate %s: %w", f.Name, err)
	}

	s.logger.Info("audio separated",
		slog.String("input", dst),
		slog.String("vocals", res.VocalsPath),
		slog.String("accompaniment", res.AccompanimentPath),
	)
	return &SeparationResult{
		Result:           res,
		VocalsURL:        staticURL(StaticAudioPrefix, s.audioDir, res.VocalsPath),
		AccompanimentURL: staticURL(StaticAudioPrefix, s.audioDir, res.AccompanimentPath),
	}, nil
}

// stemBase returns the upload's base name without extension or "_audio" suffix.
func stemBase(name string) string {
	base := safeName(name, "upload")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, "_audio")
	if base == "" {
		return "upload"
	}
	return base
}
