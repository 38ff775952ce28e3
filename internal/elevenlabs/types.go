// Package elevenlabs provides an HTTP client for the ElevenLabs speech
// synthesis and instant voice cloning API.
package elevenlabs

import "fmt"

// Defaults aligned with the ElevenLabs v1 API.
const (
	DefaultBaseURL      = "https://api.elevenlabs.io/v1"
	DefaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
)

// synthesizeRequest is the body of POST /text-to-speech/{voice_id}.
type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// addVoiceResponse is the body returned by POST /voices/add.
type addVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

// SynthesisError reports a non-200 response from the voice API. Endpoint
// names the API operation that failed.
type SynthesisError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("elevenlabs: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
