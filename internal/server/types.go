// Package server provides the HTTP server for the dubbing API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// GenerateTTSFromSTTRequest is the HTTP request body for synthesizing every
// translation of a video.
type GenerateTTSFromSTTRequest struct {
	// VideoID identifies the video whose transcripts were translated.
	VideoID int64 `json:"video_id" validate:"required,min=1"`
}

// GenerateTTSFromSTTResponse is the HTTP response after a per-video run.
type GenerateTTSFromSTTResponse struct {
	Message string `json:"message"`
	VideoID int64  `json:"video_id"`
	// Generated lists the utterances that were synthesized.
	Generated []TTSItem `json:"generated"`
	// Failed counts translations that were skipped.
	Failed int `json:"failed"`
}

// TTSItem describes one synthesized utterance.
type TTSItem struct {
	TTSID         int64   `json:"tts_id"`
	TranslationID int64   `json:"translation_id"`
	FileURL       string  `json:"file_url"`
	StartTime     float64 `json:"start_time"`
	Duration      float64 `json:"duration"`
}

// GenerateTTSRequest is the HTTP request body for an ad-hoc synthesis.
type GenerateTTSRequest struct {
	// TTSID, when present, regenerates an existing utterance.
	TTSID   *int64 `json:"tts_id,omitempty" validate:"omitempty,min=1"`
	VoiceID string `json:"voice_id"`
	Text    string `json:"text" validate:"required"`
}

// GenerateTTSResponse is the HTTP response after an ad-hoc synthesis.
type GenerateTTSResponse struct {
	Message  string  `json:"message"`
	FileURL  string  `json:"file_url"`
	TTSID    int64   `json:"tts_id"`
	// AudioURL is the object storage URL, when uploads are enabled.
	AudioURL string  `json:"audio_url,omitempty"`
	Duration float64 `json:"duration"`
}

// SeparateAudioResponse is the HTTP response after separating an upload.
type SeparateAudioResponse struct {
	Message    string `json:"message"`
	VocalsPath string `json:"vocals_path"`
	BGMPath    string `json:"bgm_path"`
	VocalsURL  string `json:"vocals_url,omitempty"`
	BGMURL     string `json:"bgm_url,omitempty"`
}

// VoiceModelResponse is the HTTP representation of a voice model.
type VoiceModelResponse struct {
	// DBID is the record identifier in the database.
	DBID        int64     `json:"db_id"`
	VoiceID     string    `json:"voice_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateVoiceModelResponse is the HTTP response after cloning a voice.
type CreateVoiceModelResponse struct {
	Message string `json:"message"`
	VoiceModelResponse
}

// ListVoiceModelsResponse is the HTTP response for the voice model list.
type ListVoiceModelsResponse struct {
	VoiceModels []VoiceModelResponse `json:"voice_models"`
}

// MessageResponse is a bare message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
