package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/dubvoice-api/internal/audio"
	"github.com/maauso/dubvoice-api/internal/metrics"
	"github.com/maauso/dubvoice-api/internal/separation"
	"github.com/maauso/dubvoice-api/internal/storage"
	"github.com/maauso/dubvoice-api/internal/store"
)

// BuildInput describes a voice model to create.
type BuildInput struct {
	Name        string
	Description string
	Files       []SourceFile
}

// VoiceModelBuilder clones a voice from one or more uploaded recordings.
//
// Each file is separated, its vocals curated into sample clips, and the clips
// of all files are sent to the cloning API in a single call. The first
// file-level failure aborts the whole build. All intermediate files live in
// a request workspace that is removed on every exit path.
type VoiceModelBuilder struct {
	files     FileStore
	separator separation.Separator
	curator   Curator
	cloner    Cloner
	store     store.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger

	maxUploadBytes int64
	// concurrency is the number of files processed at once.
	concurrency int
}

// NewVoiceModelBuilder creates a VoiceModelBuilder that processes files one
// at a time with the default upload limit.
func NewVoiceModelBuilder(
	files FileStore,
	separator separation.Separator,
	curator Curator,
	cloner Cloner,
	st store.Store,
	logger *slog.Logger,
) *VoiceModelBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceModelBuilder{
		files:          files,
		separator:      separator,
		curator:        curator,
		cloner:         cloner,
		store:          st,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
		concurrency:    1,
	}
}

// SetMaxUploadBytes sets the per-file size limit.
func (b *VoiceModelBuilder) SetMaxUploadBytes(n int64) {
	if n > 0 {
		b.maxUploadBytes = n
	}
}

// SetConcurrency sets how many files are processed in parallel.
func (b *VoiceModelBuilder) SetConcurrency(n int) {
	if n > 0 {
		b.concurrency = n
	}
}

// SetMetrics enables instrumentation.
func (b *VoiceModelBuilder) SetMetrics(m *metrics.Metrics) {
	b.metrics = m
}

// Build creates and persists a voice model from in.Files.
func (b *VoiceModelBuilder) Build(ctx context.Context, in BuildInput) (model *store.VoiceModel, err error) {
	defer func() { b.metrics.RecordVoiceModel(err) }()

	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name is required")
	}
	if len(in.Files) == 0 {
		return nil, invalid("at least one file is required")
	}
	// Declared sizes are checked before anything is written.
	for _, f := range in.Files {
		if f.Size > b.maxUploadBytes {
			return nil, tooLarge(f.Name, b.maxUploadBytes)
		}
	}

	ws, err := b.files.NewWorkspace(ctx, b.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Release()

	b.logger.Info("building voice model",
		slog.String("name", in.Name),
		slog.Int("files", len(in.Files)),
		slog.String("workspace", ws.Dir()),
	)

	clips, err := b.collect(ctx, ws, in.Files)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, ErrNoSamplesProduced
	}

	start := time.Now()
	voiceID, err := b.cloner.CreateVoiceModel(ctx, in.Name, in.Description, audio.Paths(clips))
	if err == nil && voiceID == "" {
		err = ErrNoVoiceID
	}
	b.metrics.RecordStage(metrics.StageCloning, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("create voice model: %w", err)
	}

	model = &store.VoiceModel{
		VoiceID:     voiceID,
		Name:        in.Name,
		Description: in.Description,
	}
	if err := b.store.CreateVoiceModel(ctx, model); err != nil {
		return nil, fmt.Errorf("save voice model: %w", err)
	}

	b.logger.Info("voice model created",
		slog.String("voice_id", voiceID),
		slog.Int64("id", model.ID),
		slog.Int("samples", len(clips)),
	)
	return model, nil
}

// collect runs every file through separation and curation and returns the
// clips in file order. It stops at the first failure.
func (b *VoiceModelBuilder) collect(ctx context.Context, ws *storage.Workspace, files []SourceFile) ([]audio.SampleClip, error) {
	if b.concurrency <= 1 || len(files) == 1 {
		var all []audio.SampleClip
		for i, f := range files {
			clips, err := b.processFile(ctx, ws, i, f)
			if err != nil {
				return nil, err
			}
			all = append(all, clips...)
		}
		return all, nil
	}

	results := make([][]audio.SampleClip, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, f := range files {
		g.Go(func() error {
			clips, err := b.processFile(gctx, ws, i, f)
			if err != nil {
				return err
			}
			results[i] = clips
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []audio.SampleClip
	for _, clips := range results {
		all = append(all, clips...)
	}
	return all, nil
}

// processFile handles file i inside ws/file-<i>. The saved upload and the
// separation stems are removed as soon as curation finishes; the curated
// clips stay until the workspace is released.
func (b *VoiceModelBuilder) processFile(ctx context.Context, ws *storage.Workspace, i int, f SourceFile) ([]audio.SampleClip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileDir := fmt.Sprintf("file-%d", i)
	sepDir, err := ws.Subdir(fileDir, "sep")
	if err != nil {
		return nil, err
	}
	defer storage.RemoveDir(b.logger, sepDir)

	// Stems land in sepDir/<input base>, so the input must carry an extension.
	ext := strings.ToLower(filepath.Ext(safeName(f.Name, "")))
	if ext == "" {
		ext = ".mp3"
	}
	upload := filepath.Join(sepDir, "input"+ext)
	if err := saveSource(ctx, b.files, f, upload, b.maxUploadBytes); err != nil {
		return nil, err
	}

	start := time.Now()
	stems, err := b.separator.Separate(ctx, upload, sepDir)
	b.metrics.RecordStage(metrics.StageSeparation, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("separate %s: %w", f.Name, err)
	}

	curateDir, err := ws.Subdir(fileDir, "curate")
	if err != nil {
		return nil, err
	}

	start = time.Now()
	clips, err := b.curator.Run(ctx, stems.VocalsPath, curateDir)
	b.metrics.RecordStage(metrics.StageCuration, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("curate %s: %w", f.Name, err)
	}
	b.metrics.RecordClips(len(clips))

	b.logger.Debug("file curated",
		slog.Int("file", i),
		slog.String("name", f.Name),
		slog.Int("clips", len(clips)),
	)
	return clips, nil
}
