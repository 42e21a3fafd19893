// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// batch text-to-speech HTTP endpoint. It implements the tts.Provider
// interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/argusworks/argus/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_flash_v2_5"
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM" // "Rachel", the service default
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithVoiceID sets the default voice used when a request names none.
func WithVoiceID(id string) Option {
	return func(p *Provider) {
		p.voiceID = id
	}
}

// WithBaseURL overrides the API base URL. Useful for tests and proxies.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the ElevenLabs HTTP API.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	voiceID    string
	httpClient *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		voiceID:    defaultVoiceID,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesizeRequest is the JSON payload for the text-to-speech endpoint.
type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize calls the batch text-to-speech endpoint and returns the clip.
// The response body is the raw encoded audio. LanguageTag is ignored:
// ElevenLabs voices are multilingual and detect the language from the text.
func (p *Provider) Synthesize(ctx context.Context, req tts.SpeechRequest) (*tts.Speech, error) {
	if req.Text == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	voice := req.VoiceID
	if voice == "" {
		voice = p.voiceID
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = tts.EncodingMP3
	}
	outputFormat, sampleRate, err := outputFormatFor(encoding)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(synthesizeRequest{Text: req.Text, ModelID: p.model})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", p.baseURL, voice, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("elevenlabs: synthesize: status %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio in response")
	}

	return &tts.Speech{Data: audio, Encoding: encoding, SampleRate: sampleRate}, nil
}

// outputFormatFor maps an encoding to the service's output_format parameter.
func outputFormatFor(encoding tts.AudioEncoding) (string, int, error) {
	switch encoding {
	case tts.EncodingMP3:
		return "mp3_44100_128", 44100, nil
	case tts.EncodingLinear16:
		return "pcm_24000", 24000, nil
	default:
		return "", 0, fmt.Errorf("elevenlabs: unsupported encoding %q", encoding)
	}
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
