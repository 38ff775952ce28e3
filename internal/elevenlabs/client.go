package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Static errors for ElevenLabs client operations.
var (
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("elevenlabs: API key is required")
	// ErrVoiceIDRequired is returned when a synthesis request has no voice.
	ErrVoiceIDRequired = errors.New("elevenlabs: voice ID is required")
	// ErrTextRequired is returned when a synthesis request has no text.
	ErrTextRequired = errors.New("elevenlabs: text is required")
	// ErrNoSamples is returned when a clone request carries no sample files.
	ErrNoSamples = errors.New("elevenlabs: at least one sample is required")
	// ErrNoVoiceID is returned when a clone response has no voice identifier.
	ErrNoVoiceID = errors.New("elevenlabs: no voice ID returned")
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 64 << 10

// HTTPClient talks to the ElevenLabs voice API over HTTP.
// Requests are never retried: cloning creates a voice on every call.
type HTTPClient struct {
	apiKey       string
	baseURL      string
	modelID      string
	outputFormat string
	httpClient   *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the ElevenLabs API.
func WithBaseURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		if u != "" {
			hc.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModelID sets the synthesis model.
func WithModelID(id string) ClientOption {
	return func(hc *HTTPClient) {
		if id != "" {
			hc.modelID = id
		}
	}
}

// WithOutputFormat sets the synthesis output format, e.g. mp3_44100_128.
func WithOutputFormat(format string) ClientOption {
	return func(hc *HTTPClient) {
		if format != "" {
			hc.outputFormat = format
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		if d > 0 {
			hc.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a new ElevenLabs HTTP client.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &HTTPClient{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		modelID:      DefaultModelID,
		outputFormat: DefaultOutputFormat,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Synthesize renders text with voiceID and returns the encoded audio.
func (c *HTTPClient) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	if voiceID == "" {
		return nil, ErrVoiceIDRequired
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextRequired
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: c.modelID})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(voiceID), url.QueryEscape(c.outputFormat))

	audio, err := c.doRequest(ctx, "text-to-speech", endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs: text-to-speech returned empty audio")
	}
	return audio, nil
}

// CreateVoiceModel uploads samplePaths as an instant voice clone and returns
// the new voice ID.
func (c *HTTPClient) CreateVoiceModel(ctx context.Context, name, description string, samplePaths []string) (string, error) {
	if len(samplePaths) == 0 {
		return "", ErrNoSamples
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("name", name); err != nil {
		return "", fmt.Errorf("elevenlabs: write name field: %w", err)
	}
	if err := writer.WriteField("description", description); err != nil {
		return "", fmt.Errorf("elevenlabs: write description field: %w", err)
	}
	for _, p := range samplePaths {
		if err := addFormFile(writer, p); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("elevenlabs: close multipart writer: %w", err)
	}

	respBody, err := c.doRequest(ctx, "voices/add", c.baseURL+"/voices/add", writer.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	var resp addVoiceResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("elevenlabs: unmarshal response: %w", err)
	}
	if resp.VoiceID == "" {
		return "", ErrNoVoiceID
	}

	return resp.VoiceID, nil
}

func addFormFile(writer *multipart.Writer, path string) error {
	f, err := os.Open(path) // #nosec G304 -- path is a curated sample in the request workspace
	if err != nil {
		return fmt.Errorf("elevenlabs: open sample: %w", err)
	}
	defer func() { _ = f.Close() }()

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("elevenlabs: create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("elevenlabs: copy sample %s: %w", filepath.Base(path), err)
	}
	return nil
}

// doRequest performs a single POST and returns the response body. Any
// non-200 status is reported as a *SynthesisError.
func (c *HTTPClient) doRequest(ctx context.Context, op, endpoint, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %s request failed: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &SynthesisError{
			Endpoint:   op,
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", err)
	}

	return respBody, nil
}
