package dubbing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maauso/dubvoice-api/internal/metrics"
	"github.com/maauso/dubvoice-api/internal/store"
)

// customTTSDir holds synthesized audio that is not tied to a video.
const customTTSDir = "custom_tts"

// TTSConfig configures a TTSService.
type TTSConfig struct {
	// AudioDir is the root for generated audio. It is served statically
	// under StaticAudioPrefix.
	AudioDir string
	// DefaultVoiceID is used when a request names no voice.
	DefaultVoiceID string
}

// GeneratedTTS describes one synthesized utterance.
type GeneratedTTS struct {
	TTSID         int64
	TranslationID int64
	FilePath      string
	FileURL       string
	// AudioURL is set when the file was also uploaded to object storage.
	AudioURL  string
	StartTime float64
	Duration  float64
}

// TranscriptTTSResult summarizes a per-video generation run.
type TranscriptTTSResult struct {
	VideoID   int64
	Generated []GeneratedTTS
	// Failed counts translations that were skipped after an error.
	Failed int
}

// CustomTTSInput is an ad-hoc synthesis request.
type CustomTTSInput struct {
	// TTSID, when set, regenerates an existing record in place.
	TTSID   *int64
	VoiceID string
	Text    string
}

// TTSService synthesizes translated text and records the results.
type TTSService struct {
	store    store.Store
	synth    Synthesizer
	prober   DurationProber
	files    Saver
	uploader Uploader
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      TTSConfig
	now      func() time.Time
}

// NewTTSService creates a TTSService.
func NewTTSService(st store.Store, synth Synthesizer, prober DurationProber, files Saver, cfg TTSConfig, logger *slog.Logger) *TTSService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTSService{
		store:  st,
		synth:  synth,
		prober: prober,
		files:  files,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetUploader enables uploading custom TTS output to object storage.
func (s *TTSService) SetUploader(u Uploader) {
	s.uploader = u
}

// SetMetrics enables instrumentation.
func (s *TTSService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// GenerateFromTranscripts synthesizes every translation of videoID with the
// default voice. A failing translation is logged and skipped; the run only
// fails when there is nothing to synthesize or the context ends.
func (s *TTSService) GenerateFromTranscripts(ctx context.Context, videoID int64) (*TranscriptTTSResult, error) {
	if videoID <= 0 {
		return nil, invalid("video_id must be a positive integer")
	}

	rows, err := s.store.ListTranslationsByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("translations for video %d: %w", videoID, store.ErrNotFound)
	}

	dir := filepath.Join(s.cfg.AudioDir, fmt.Sprintf("%d_tts", videoID))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create tts directory: %w", err)
	}

	result := &TranscriptTTSResult{VideoID: videoID}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, err := s.generateRow(ctx, row, dir)
		s.metrics.RecordTTS(err)
		if err != nil {
			result.Failed++
			s.logger.Warn("failed to generate tts for translation",
				slog.Int64("video_id", videoID),
				slog.Int64("translation_id", row.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Generated = append(result.Generated, *item)
	}

	s.logger.Info("tts generated from transcripts",
		slog.Int64("video_id", videoID),
		slog.Int("generated", len(result.Generated)),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *TTSService) generateRow(ctx context.Context, row store.Translation, dir string) (*GeneratedTTS, error) {
	file := filepath.Join(dir, strconv.FormatInt(row.ID, 10)+".mp3")
	duration, err := s.synthesizeTo(ctx, s.cfg.DefaultVoiceID, row.Text, file)
	if err != nil {
		return nil, err
	}

	rec := &store.TTS{
		TranslationID: row.ID,
		FilePath:      file,
		Voice:         s.cfg.DefaultVoiceID,
		StartTime:     row.StartTime,
		Duration:      duration,
	}
	if err := s.store.CreateTTS(ctx, rec); err != nil {
		return nil, fmt.Errorf("save tts: %w", err)
	}

	return &GeneratedTTS{
		TTSID:         rec.ID,
		TranslationID: row.ID,
		FilePath:      file,
		FileURL:       staticURL(StaticAudioPrefix, s.cfg.AudioDir, file),
		StartTime:     row.StartTime,
		Duration:      duration,
	}, nil
}

// GenerateCustom synthesizes in.Text. With a TTSID the existing record, its
// translation text and its audio file are replaced; otherwise a new
// translation and TTS record are created.
func (s *TTSService) GenerateCustom(ctx context.Context, in CustomTTSInput) (item *GeneratedTTS, err error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, invalid("text is required")
	}
	voice := in.VoiceID
	if voice == "" {
		voice = s.cfg.DefaultVoiceID
	}

	defer func() { s.metrics.RecordTTS(err) }()

	if in.TTSID != nil {
		item, err = s.regenerate(ctx, *in.TTSID, voice, text)
	} else {
		item, err = s.create(ctx, voice, text)
	}
	if err != nil {
		return nil, err
	}

	item.FileURL = staticURL(StaticAudioPrefix, s.cfg.AudioDir, item.FilePath)
	item.AudioURL = s.upload(ctx, item.FilePath)
	return item, nil
}

func (s *TTSService) regenerate(ctx context.Context, id int64, voice, text string) (*GeneratedTTS, error) {
	rec, err := s.store.GetTTS(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load tts %d: %w", id, err)
	}

	// Render next to the current file so a failed attempt leaves it untouched.
	tmp := filepath.Join(filepath.Dir(rec.FilePath), ".regen-"+uuid.NewString()[:8]+filepath.Ext(rec.FilePath))
	duration, err := s.synthesizeTo(ctx, voice, text, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, rec.FilePath); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("replace audio: %w", err)
	}

	if err := s.store.UpdateTranslationText(ctx, rec.TranslationID, text); err != nil {
		return nil, fmt.Errorf("update translation %d: %w", rec.TranslationID, err)
	}
	if err := s.store.UpdateTTS(ctx, rec.ID, voice, duration); err != nil {
		return nil, fmt.Errorf("update tts %d: %w", rec.ID, err)
	}

	s.logger.Info("tts regenerated", slog.Int64("tts_id", rec.ID), slog.String("voice", voice))
	return &GeneratedTTS{
		TTSID:         rec.ID,
		TranslationID: rec.TranslationID,
		FilePath:      rec.FilePath,
		StartTime:     rec.StartTime,
		Duration:      duration,
	}, nil
}

func (s *TTSService) create(ctx context.Context, voice, text string) (*GeneratedTTS, error) {
	name := fmt.Sprintf("tts_%d_%s.mp3", s.now().Unix(), uuid.NewString()[:8])
	file := filepath.Join(s.cfg.AudioDir, customTTSDir, name)

	duration, err := s.synthesizeTo(ctx, voice, text, file)
	if err != nil {
		return nil, err
	}

	tr := &store.Translation{Text: text, Language: "en"}
	if err := s.store.CreateTranslation(ctx, tr); err != nil {
		return nil, fmt.Errorf("save translation: %w", err)
	}
	rec := &store.TTS{
		TranslationID: tr.ID,
		FilePath:      file,
		Voice:         voice,
		Duration:      duration,
	}
	if err := s.store.CreateTTS(ctx, rec); err != nil {
		return nil, fmt.Errorf("save tts: %w", err)
	}

	s.logger.Info("custom tts created", slog.Int64("tts_id", rec.ID), slog.String("voice", voice))
	return &GeneratedTTS{
		TTSID:         rec.ID,
		TranslationID: tr.ID,
		FilePath:      file,
		Duration:      duration,
	}, nil
}

// synthesizeTo renders text to file and returns the audio duration in seconds.
func (s *TTSService) synthesizeTo(ctx context.Context, voice, text, file string) (float64, error) {
	start := time.Now()
	data, err := s.synth.Synthesize(ctx, voice, text)
	s.metrics.RecordStage(metrics.StageSynthesis, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("synthesize: %w", err)
	}

	if _, err := s.files.Save(ctx, file, bytes.NewReader(data), 0); err != nil {
		return 0, fmt.Errorf("write audio: %w", err)
	}

	duration, err := s.prober.Duration(ctx, file)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	return duration, nil
}

// upload publishes file when an uploader is configured. Failures are logged;
// the local file stays authoritative.
func (s *TTSService) upload(ctx context.Context, file string) string {
	if s.uploader == nil {
		return ""
	}

	f, err := os.Open(file) // #nosec G304 -- file was just written by this service
	if err != nil {
		s.logger.Warn("failed to open tts for upload", slog.String("path", file), slog.String("error", err.Error()))
		return ""
	}
	defer func() { _ = f.Close() }()

	key := path.Join("tts", filepath.Base(filepath.Dir(file)), filepath.Base(file))
	url, err := s.uploader.UploadToS3(ctx, key, f)
	if err != nil {
		s.logger.Warn("failed to upload tts",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return url
}
