// Package bootstrap provides dependency initialization for the dubbing API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maauso/dubvoice-api/internal/config"
	"github.com/maauso/dubvoice-api/internal/curation"
	"github.com/maauso/dubvoice-api/internal/dubbing"
	"github.com/maauso/dubvoice-api/internal/elevenlabs"
	"github.com/maauso/dubvoice-api/internal/media"
	"github.com/maauso/dubvoice-api/internal/metrics"
	"github.com/maauso/dubvoice-api/internal/separation"
	"github.com/maauso/dubvoice-api/internal/server"
	"github.com/maauso/dubvoice-api/internal/storage"
	"github.com/maauso/dubvoice-api/internal/store"
)

// The voice client serves both voice ports.
var (
	_ dubbing.Synthesizer = (*elevenlabs.HTTPClient)(nil)
	_ dubbing.Cloner      = (*elevenlabs.HTTPClient)(nil)
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	VoiceModels *dubbing.VoiceModelBuilder
	TTS         *dubbing.TTSService
	Separation  *dubbing.SeparationService
	Store       store.Store
	Metrics     *metrics.Metrics

	closers []func()
}

// Services returns the use cases wired for the HTTP handlers.
func (d *Dependencies) Services() server.Services {
	return server.Services{
		VoiceModels: d.VoiceModels,
		Models:      d.Store,
		TTS:         d.TTS,
		Separation:  d.Separation,
	}
}

// Close releases resources held by the dependencies, such as the database pool.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Metrics: metrics.New()}

	// Initialize persistence
	st, err := initStore(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}
	deps.Store = st

	// Initialize storage
	files, uploader, err := initStorage(ctx, cfg, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	// Initialize ElevenLabs client
	voiceClient, err := elevenlabs.NewClient(cfg.ElevenLabsAPIKey,
		elevenlabs.WithBaseURL(cfg.ElevenLabsBaseURL),
		elevenlabs.WithModelID(cfg.ElevenLabsModelID),
		elevenlabs.WithOutputFormat(cfg.ElevenLabsOutputFormat),
		elevenlabs.WithTimeout(cfg.APITimeout),
	)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("create ElevenLabs client: %w", err)
	}

	// Initialize external tools
	transcoder := media.NewFFmpegTranscoder(cfg.FFmpegPath, media.WithFFprobePath(cfg.FFprobePath))
	separator := separation.NewSpleeter(cfg.SpleeterPath,
		separation.WithModel(cfg.SpleeterModel),
		separation.WithTimeout(cfg.SeparationTimeout),
		separation.WithLogger(logger),
	)

	// Initialize curation pipeline
	mode, err := curation.ParseMode(strings.ToLower(cfg.CurationMode))
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("curation mode: %w", err)
	}
	pipeline := curation.New(transcoder,
		curation.WithMode(mode),
		curation.WithSampleBudget(cfg.SampleBudget),
		curation.WithMaxChunk(cfg.MaxChunk()),
		curation.WithLogger(logger),
	)

	// Initialize use cases
	builder := dubbing.NewVoiceModelBuilder(files, separator, pipeline, voiceClient, st, logger)
	builder.SetMaxUploadBytes(cfg.MaxUploadBytes)
	builder.SetConcurrency(cfg.MaxConcurrentFiles)
	builder.SetMetrics(deps.Metrics)

	tts := dubbing.NewTTSService(st, voiceClient, transcoder, files, dubbing.TTSConfig{
		AudioDir:       cfg.AudioDir,
		DefaultVoiceID: cfg.DefaultVoiceID,
	}, logger)
	if uploader != nil {
		tts.SetUploader(uploader)
	}
	tts.SetMetrics(deps.Metrics)

	sep := dubbing.NewSeparationService(files, separator, cfg.AudioDir, logger)
	sep.SetMaxUploadBytes(cfg.MaxUploadBytes)
	sep.SetMetrics(deps.Metrics)

	deps.VoiceModels = builder
	deps.TTS = tts
	deps.Separation = sep

	logger.Info("dependencies initialized",
		slog.String("curation_mode", string(pipeline.Mode())),
		slog.Int("sample_budget", cfg.SampleBudget),
		slog.Int("max_concurrent_files", cfg.MaxConcurrentFiles),
	)
	return deps, nil
}

// initStore opens PostgreSQL when DATABASE_URL is set and falls back to the
// in-memory store otherwise.
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (store.Store, error) {
	if !cfg.DatabaseEnabled() {
		logger.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	pool, err := store.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	deps.closers = append(deps.closers, pool.Close)

	pg := store.NewPostgresStore(pool)
	if cfg.DBMigrate {
		if err := pg.Migrate(ctx); err != nil {
			deps.Close()
			return nil, err
		}
		logger.Info("database schema applied")
	}

	logger.Info("PostgreSQL store configured")
	return pg, nil
}

// initStorage creates the appropriate storage backend based on configuration.
// The uploader is nil unless S3 is configured.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dubbing.FileStore, dubbing.Uploader, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil, nil
}
