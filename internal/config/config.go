// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrElevenLabsAPIKeyRequired is returned when ELEVENLABS_API_KEY is not set.
	ErrElevenLabsAPIKeyRequired = errors.New("config: ELEVENLABS_API_KEY is required")
	// ErrInvalidCurationMode is returned when CURATION_MODE is not merge or segment.
	ErrInvalidCurationMode = errors.New("config: CURATION_MODE must be merge or segment")
	// ErrInvalidLimit is returned when a size, budget or concurrency setting is not positive.
	ErrInvalidLimit = errors.New("config: limits must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=http://localhost:3000" json:"allowed_origins"`

	// Storage settings
	TempDir  string `env:"TEMP_DIR, default=/tmp/dubvoice" json:"temp_dir"`
	AudioDir string `env:"AUDIO_DIR, default=extracted_audio" json:"audio_dir"`
	VideoDir string `env:"VIDEO_DIR, default=uploaded_videos" json:"video_dir"`

	// ElevenLabs settings
	ElevenLabsAPIKey       string        `env:"ELEVENLABS_API_KEY, required" json:"-"` // Masked in JSON
	ElevenLabsBaseURL      string        `env:"ELEVENLABS_BASE_URL, default=https://api.elevenlabs.io/v1" json:"elevenlabs_base_url"`
	ElevenLabsModelID      string        `env:"ELEVENLABS_MODEL_ID, default=eleven_multilingual_v2" json:"elevenlabs_model_id"`
	ElevenLabsOutputFormat string        `env:"ELEVENLABS_OUTPUT_FORMAT, default=mp3_44100_128" json:"elevenlabs_output_format"`
	DefaultVoiceID         string        `env:"DEFAULT_VOICE_ID, default=5Af3x6nAIWjF6agOOtOz" json:"default_voice_id"`
	APITimeout             time.Duration `env:"API_TIMEOUT, default=120s" json:"api_timeout"`

	// Database settings. An empty DATABASE_URL selects the in-memory store.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON
	DBMigrate   bool   `env:"DB_MIGRATE, default=false" json:"db_migrate"`

	// External tools
	SpleeterPath      string        `env:"SPLEETER_PATH, default=spleeter" json:"spleeter_path"`
	SpleeterModel     string        `env:"SPLEETER_MODEL, default=spleeter:2stems" json:"spleeter_model"`
	FFmpegPath        string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath       string        `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	SeparationTimeout time.Duration `env:"SEPARATION_TIMEOUT, default=10m" json:"separation_timeout"`

	// Processing settings
	MaxUploadBytes     int64  `env:"MAX_UPLOAD_BYTES, default=10485760" json:"max_upload_bytes"`
	SampleBudget       int    `env:"SAMPLE_BUDGET, default=25" json:"sample_budget"`
	MaxChunkSec        int    `env:"MAX_CHUNK_SEC, default=30" json:"max_chunk_sec"`
	CurationMode       string `env:"CURATION_MODE, default=merge" json:"curation_mode"` // "merge" or "segment"
	MaxConcurrentFiles int    `env:"MAX_CONCURRENT_FILES, default=1" json:"max_concurrent_files"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// DatabaseEnabled returns true if a PostgreSQL DSN is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.DatabaseURL != ""
}

// MaxChunk returns the longest clip the merge path produces.
func (c *Config) MaxChunk() time.Duration {
	return time.Duration(c.MaxChunkSec) * time.Second
}

// LoadDotEnv loads variables from path into the environment without
// overriding values that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "ELEVENLABS_API_KEY") {
			return nil, ErrElevenLabsAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ElevenLabsAPIKey == "" {
		return ErrElevenLabsAPIKeyRequired
	}
	switch strings.ToLower(c.CurationMode) {
	case "merge", "segment":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCurationMode, c.CurationMode)
	}
	if c.MaxUploadBytes <= 0 || c.SampleBudget <= 0 || c.MaxChunkSec <= 0 || c.MaxConcurrentFiles <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return NewLogger(os.Stdout, c.LogFormat, c.LogLevel)
}

// NewLogger creates a logger writing to w in the given format and level.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, AudioDir: %s, ElevenLabsAPIKey: %s, ElevenLabsModelID: %s, DatabaseURL: %s, CurationMode: %s, SampleBudget: %d, MaxChunkSec: %d, MaxUploadBytes: %d, MaxConcurrentFiles: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.AudioDir,
		mask(c.ElevenLabsAPIKey),
		c.ElevenLabsModelID,
		mask(c.DatabaseURL),
		c.CurationMode,
		c.SampleBudget,
		c.MaxChunkSec,
		c.MaxUploadBytes,
		c.MaxConcurrentFiles,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
