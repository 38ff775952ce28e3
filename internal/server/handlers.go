package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/dubvoice-api/internal/audio"
	"github.com/maauso/dubvoice-api/internal/curation"
	"github.com/maauso/dubvoice-api/internal/dubbing"
	"github.com/maauso/dubvoice-api/internal/elevenlabs"
	"github.com/maauso/dubvoice-api/internal/separation"
	"github.com/maauso/dubvoice-api/internal/store"
)

const (
	// DefaultMaxRequestBytes caps a whole request body, all files included.
	DefaultMaxRequestBytes int64 = 256 << 20
	// multipartMemory is the part of a multipart body kept in memory; the
	// rest spills to temporary files.
	multipartMemory int64 = 32 << 20
)

// VoiceModelBuilder clones a voice from uploaded recordings.
type VoiceModelBuilder interface {
	Build(ctx context.Context, in dubbing.BuildInput) (*store.VoiceModel, error)
}

// VoiceModelLister lists persisted voice models.
type VoiceModelLister interface {
	ListVoiceModels(ctx context.Context) ([]store.VoiceModel, error)
}

// TTSGenerator synthesizes translated or ad-hoc text.
type TTSGenerator interface {
	GenerateFromTranscripts(ctx context.Context, videoID int64) (*dubbing.TranscriptTTSResult, error)
	GenerateCustom(ctx context.Context, in dubbing.CustomTTSInput) (*dubbing.GeneratedTTS, error)
}

// AudioSeparator splits an upload into vocals and accompaniment.
type AudioSeparator interface {
	Separate(ctx context.Context, f dubbing.SourceFile) (*dubbing.SeparationResult, error)
}

// Services groups the use cases behind the handlers.
type Services struct {
	VoiceModels VoiceModelBuilder
	Models      VoiceModelLister
	TTS         TTSGenerator
	Separation  AudioSeparator
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	svc             Services
	validator       *validator.Validate
	logger          *slog.Logger
	maxRequestBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxRequestBytes bounds the size of request bodies.
func WithMaxRequestBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxRequestBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Services, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		svc:             svc,
		validator:       validator.New(),
		logger:          logger,
		maxRequestBytes: DefaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root handles GET / requests.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Hello from the dubvoice API"})
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// SeparateAudio handles POST /separate-audio requests. The recording is sent
// in the multipart field "file".
func (h *Handlers) SeparateAudio(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer h.removeMultipart(r)

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "file is required", "MISSING_FILE")
		return
	}

	res, err := h.svc.Separation.Separate(r.Context(), sourceFile(headers[0]))
	if err != nil {
		h.writeServiceError(w, "separate audio", err)
		return
	}

	writeJSON(w, http.StatusOK, SeparateAudioResponse{
		Message:    "audio separated",
		VocalsPath: res.VocalsPath,
		BGMPath:    res.AccompanimentPath,
		VocalsURL:  res.VocalsURL,
		BGMURL:     res.AccompanimentURL,
	})
}

// GenerateTTSFromSTT handles POST /generate-tts-from-stt requests.
func (h *Handlers) GenerateTTSFromSTT(w http.ResponseWriter, r *http.Request) {
	var req GenerateTTSFromSTTRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.TTS.GenerateFromTranscripts(r.Context(), req.VideoID)
	if err != nil {
		h.writeServiceError(w, "generate tts", err)
		return
	}

	items := make([]TTSItem, 0, len(res.Generated))
	for _, g := range res.Generated {
		items = append(items, TTSItem{
			TTSID:         g.TTSID,
			TranslationID: g.TranslationID,
			FileURL:       g.FileURL,
			StartTime:     g.StartTime,
			Duration:      g.Duration,
		})
	}

	writeJSON(w, http.StatusOK, GenerateTTSFromSTTResponse{
		Message:   "tts generated",
		VideoID:   res.VideoID,
		Generated: items,
		Failed:    res.Failed,
	})
}

// GenerateTTS handles POST /generate-tts requests.
func (h *Handlers) GenerateTTS(w http.ResponseWriter, r *http.Request) {
	var req GenerateTTSRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	item, err := h.svc.TTS.GenerateCustom(r.Context(), dubbing.CustomTTSInput{
		TTSID:   req.TTSID,
		VoiceID: req.VoiceID,
		Text:    req.Text,
	})
	if err != nil {
		h.writeServiceError(w, "generate tts", err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateTTSResponse{
		Message:  "tts generated",
		FileURL:  item.FileURL,
		TTSID:    item.TTSID,
		AudioURL: item.AudioURL,
		Duration: item.Duration,
	})
}

// CreateVoiceModel handles POST /create-voice-model requests. The form
// carries "name", "description" and one or more "files".
func (h *Handlers) CreateVoiceModel(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer h.removeMultipart(r)

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "VALIDATION_ERROR")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file is required", "MISSING_FILE")
		return
	}

	files := make([]dubbing.SourceFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, sourceFile(fh))
	}

	model, err := h.svc.VoiceModels.Build(r.Context(), dubbing.BuildInput{
		Name:        name,
		Description: r.FormValue("description"),
		Files:       files,
	})
	if err != nil {
		h.writeServiceError(w, "create voice model", err)
		return
	}

	writeJSON(w, http.StatusOK, CreateVoiceModelResponse{
		Message:            "voice model created",
		VoiceModelResponse: voiceModelResponse(*model),
	})
}

// ListVoiceModels handles GET /voice-models requests.
func (h *Handlers) ListVoiceModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.Models.ListVoiceModels(r.Context())
	if err != nil {
		h.writeServiceError(w, "list voice models", err)
		return
	}

	resp := ListVoiceModelsResponse{VoiceModels: make([]VoiceModelResponse, 0, len(models))}
	for _, m := range models {
		resp.VoiceModels = append(resp.VoiceModels, voiceModelResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func voiceModelResponse(m store.VoiceModel) VoiceModelResponse {
	return VoiceModelResponse{
		DBID:        m.ID,
		VoiceID:     m.VoiceID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

func sourceFile(fh *multipart.FileHeader) dubbing.SourceFile {
	return dubbing.SourceFile{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// decodeJSON decodes and validates the request body into dst. It writes the
// error response and returns false on failure.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "request body too large", "FILE_TOO_LARGE")
			return false
		}
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
		return false
	}
	return true
}

func (h *Handlers) removeMultipart(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		h.logger.Warn("failed to remove multipart files",
			slog.String("error", err.Error()),
		)
	}
}

// classify maps a service error to an HTTP status, an error code and the
// message shown to clients.
func classify(err error) (status int, code, message string) {
	var (
		sepErr   *separation.SeparationError
		synthErr *elevenlabs.SynthesisError
	)

	switch {
	case errors.Is(err, dubbing.ErrFileTooLarge):
		return http.StatusBadRequest, "FILE_TOO_LARGE", err.Error()
	case errors.Is(err, dubbing.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, curation.ErrEmptyMerge), errors.Is(err, audio.ErrNoSegments):
		return http.StatusUnprocessableEntity, "NO_USABLE_AUDIO", err.Error()
	case errors.As(err, &sepErr):
		return http.StatusBadGateway, "SEPARATION_FAILED", "audio separation failed"
	case errors.As(err, &synthErr):
		return http.StatusBadGateway, "VOICE_API_ERROR", "voice API request failed"
	case errors.Is(err, dubbing.ErrNoVoiceID), errors.Is(err, elevenlabs.ErrNoVoiceID):
		return http.StatusBadGateway, "CLONING_FAILED", "voice API returned no voice ID"
	case errors.Is(err, dubbing.ErrNoSamplesProduced):
		return http.StatusBadGateway, "NO_SAMPLES_PRODUCED", "no voice samples could be produced"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "request timed out"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code, message := classify(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(context.Background(), level, op+" failed",
		slog.Int("status", status),
		slog.String("code", code),
		slog.String("error", err.Error()),
	)

	writeError(w, status, message, code)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
