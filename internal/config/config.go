// Package config provides the configuration schema, loader, file watcher,
// and provider registry for the Argus voice assistant server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the Argus server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration is a time.Duration that unmarshals from YAML strings such as
// "5s" or "1500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for Argus.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Audio       AudioConfig       `yaml:"audio"`
	Endpointing EndpointingConfig `yaml:"endpointing"`
	Sounds      SoundsConfig      `yaml:"sounds"`
	Storage     StorageConfig     `yaml:"storage"`
	Interaction InteractionConfig `yaml:"interaction"`
}

// ServerConfig holds network and logging settings for the Argus server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	// LLM answers vision and chat questions.
	LLM ProviderEntry `yaml:"llm"`

	// STT transcribes the recorded utterance file.
	STT ProviderEntry `yaml:"stt"`

	// TTS speaks the model's answers.
	TTS ProviderEntry `yaml:"tts"`

	// Recognizer is the streaming decoder driving utterance endpointing.
	Recognizer ProviderEntry `yaml:"recognizer"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "google").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o", "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above, such as a TTS voice or language tag.
	Options map[string]any `yaml:"options"`
}

// StringOption returns the named value from Options when it is a string.
func (e ProviderEntry) StringOption(key string) (string, bool) {
	v, ok := e.Options[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AudioConfig holds the microphone capture parameters.
type AudioConfig struct {
	// SampleRate in Hz. The pipeline standard is 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the capture channel count (1 = mono).
	Channels int `yaml:"channels"`

	// BlockSize is the number of frames delivered per capture block.
	BlockSize int `yaml:"block_size"`
}

// EndpointingConfig tunes when an utterance recording ends.
type EndpointingConfig struct {
	// MinDuration is the minimum recording length before the endpoint may
	// fire.
	MinDuration Duration `yaml:"min_duration"`

	// SilenceTimeout is how long after the last recognised speech the
	// recording keeps running.
	SilenceTimeout Duration `yaml:"silence_timeout"`
}

// SoundsConfig locates the notification sound assets.
type SoundsConfig struct {
	// Dir is the directory holding System_<id>.mp3 / System_<id>.wav clips.
	Dir string `yaml:"dir"`
}

// StorageConfig holds the working file paths, each overwritten per turn.
type StorageConfig struct {
	// UtterancePath is the WAV file utterances are recorded to.
	UtterancePath string `yaml:"utterance_path"`

	// ImagePath is where the most recently uploaded camera image is kept.
	ImagePath string `yaml:"image_path"`
}

// InteractionConfig bounds the remote legs of a single interaction.
type InteractionConfig struct {
	// RemoteTimeout bounds each remote provider call.
	RemoteTimeout Duration `yaml:"remote_timeout"`

	// MaxTokens caps completion length. Answers are spoken, so keep it low.
	MaxTokens int `yaml:"max_tokens"`
}
