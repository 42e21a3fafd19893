// Package googletts provides a Google Cloud Text-to-Speech backed provider
// using the REST text:synthesize endpoint. It implements the tts.Provider
// interface.
package googletts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/argusworks/argus/pkg/provider/tts"
)

const (
	defaultBaseURL  = "https://texttospeech.googleapis.com"
	defaultLanguage = "de-DE"
	defaultVoice    = "de-DE-Wavenet-B"
)

// Option is a functional option for configuring the Google TTS Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Useful for tests and proxies.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithLanguage sets the default BCP-47 language tag (e.g., "en-US").
func WithLanguage(tag string) Option {
	return func(p *Provider) {
		p.language = tag
	}
}

// WithVoice sets the default voice name (e.g., "de-DE-Wavenet-B").
func WithVoice(name string) Option {
	return func(p *Provider) {
		p.voice = name
	}
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the Google Cloud TTS REST API.
type Provider struct {
	apiKey     string
	baseURL    string
	language   string
	voice      string
	httpClient *http.Client
}

// New creates a new Google TTS Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("googletts: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		language:   defaultLanguage,
		voice:      defaultVoice,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- REST message types ----

// synthesizeRequest mirrors the v1 text:synthesize request body.
type synthesizeRequest struct {
	Input       synthesisInput  `json:"input"`
	Voice       voiceSelection  `json:"voice"`
	AudioConfig audioConfig     `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
}

type audioConfig struct {
	AudioEncoding   string `json:"audioEncoding"`
	SampleRateHertz int    `json:"sampleRateHertz,omitempty"`
}

// synthesizeResponse mirrors the v1 text:synthesize response body.
type synthesizeResponse struct {
	AudioContent string `json:"audioContent"` // base64-encoded audio
}

// Synthesize calls the text:synthesize endpoint and returns the decoded clip.
// Defaults: the provider's configured language and voice, MP3 output.
func (p *Provider) Synthesize(ctx context.Context, req tts.SpeechRequest) (*tts.Speech, error) {
	if req.Text == "" {
		return nil, errors.New("googletts: text must not be empty")
	}

	language := req.LanguageTag
	if language == "" {
		language = p.language
	}
	voice := req.VoiceID
	if voice == "" {
		voice = p.voice
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = tts.EncodingMP3
	}

	body := synthesizeRequest{
		Input: synthesisInput{Text: req.Text},
		Voice: voiceSelection{LanguageCode: language, Name: voice},
		AudioConfig: audioConfig{AudioEncoding: string(encoding)},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("googletts: marshal request: %w", err)
	}

	url := p.baseURL + "/v1/text:synthesize"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("googletts: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("googletts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("googletts: synthesize: status %d: %s", resp.StatusCode, msg)
	}

	var decoded synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("googletts: decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("googletts: decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("googletts: empty audio content in response")
	}

	return &tts.Speech{
		Data:     audio,
		Encoding: encoding,
		// The service outputs 24 kHz for both MP3 and LINEAR16 unless a
		// sampleRateHertz override is requested.
		SampleRate: 24000,
	}, nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
