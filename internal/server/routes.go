package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/maauso/dubvoice-api/internal/dubbing"
	"github.com/maauso/dubvoice-api/internal/metrics"
)

// VideosPrefix is the URL prefix under which uploaded videos are served.
const VideosPrefix = "/videos"

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// AudioDir is served under dubbing.StaticAudioPrefix when set.
	AudioDir string
	// VideoDir is served under VideosPrefix when set.
	VideoDir string
	// Metrics enables request instrumentation and the /metrics endpoint.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /separate-audio", h.SeparateAudio)
	mux.HandleFunc("POST /generate-tts-from-stt", h.GenerateTTSFromSTT)
	mux.HandleFunc("POST /generate-tts", h.GenerateTTS)
	mux.HandleFunc("POST /create-voice-model", h.CreateVoiceModel)
	mux.HandleFunc("GET /voice-models", h.ListVoiceModels)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	if cfg.AudioDir != "" {
		mux.Handle("GET "+dubbing.StaticAudioPrefix+"/", staticFiles(dubbing.StaticAudioPrefix, cfg.AudioDir))
	}
	if cfg.VideoDir != "" {
		mux.Handle("GET "+VideosPrefix+"/", staticFiles(VideosPrefix, cfg.VideoDir))
	}

	chain := ChainMiddleware(
		MetricsMiddleware(cfg.Metrics),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}

// staticFiles serves the files under dir at prefix. Directory listings are
// not exposed.
func staticFiles(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
