// Package store persists translations, generated speech and voice models.
// It defines the Store port and its in-memory and PostgreSQL adapters.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Translation is translated text, optionally tied to a transcript segment.
type Translation struct {
	ID int64
	// TranscriptID is zero for free-standing translations.
	TranscriptID int64
	Text         string
	Language     string
	// StartTime is the transcript segment offset in seconds. It is only
	// populated by ListTranslationsByVideo.
	StartTime float64
}

// TTS is a synthesized rendition of a translation.
type TTS struct {
	ID            int64
	TranslationID int64
	FilePath      string
	Voice         string
	StartTime     float64
	Duration      float64
}

// VoiceModel is a cloned voice registered with the voice provider.
type VoiceModel struct {
	ID          int64
	VoiceID     string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Store defines the persistence operations of the service.
// It acts as a port in the hexagonal architecture pattern.
type Store interface {
	// ListTranslationsByVideo returns the translations of every transcript
	// segment of videoID, ordered by start time.
	ListTranslationsByVideo(ctx context.Context, videoID int64) ([]Translation, error)

	// CreateTranslation inserts a translation and sets its ID.
	CreateTranslation(ctx context.Context, t *Translation) error

	// UpdateTranslationText replaces a translation's text.
	// Returns ErrNotFound if the translation does not exist.
	UpdateTranslationText(ctx context.Context, id int64, text string) error

	// GetTTS retrieves a TTS record by ID.
	// Returns ErrNotFound if the record does not exist.
	GetTTS(ctx context.Context, id int64) (*TTS, error)

	// CreateTTS inserts a TTS record and sets its ID.
	CreateTTS(ctx context.Context, t *TTS) error

	// UpdateTTS sets the voice and duration of a TTS record.
	// Returns ErrNotFound if the record does not exist.
	UpdateTTS(ctx context.Context, id int64, voice string, duration float64) error

	// CreateVoiceModel inserts a voice model and sets its ID and CreatedAt.
	CreateVoiceModel(ctx context.Context, m *VoiceModel) error

	// ListVoiceModels returns all voice models, newest first.
	ListVoiceModels(ctx context.Context) ([]VoiceModel, error)
}
