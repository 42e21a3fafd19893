package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [LoadFromReader] for fields left empty.
const (
	DefaultListenAddr     = ":8080"
	DefaultSampleRate     = 16000
	DefaultChannels       = 1
	DefaultBlockSize      = 4000
	DefaultMinDuration    = 5 * time.Second
	DefaultSilenceTimeout = 2 * time.Second
	DefaultSoundDir       = "sounds"
	DefaultUtterancePath  = "utterance.wav"
	DefaultImagePath      = "received_image.jpg"
	DefaultRemoteTimeout  = 60 * time.Second
	DefaultMaxTokens      = 2000
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"whisper"},
	"tts":        {"google", "elevenlabs"},
	"recognizer": {"kaldi"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields with the documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = DefaultChannels
	}
	if cfg.Audio.BlockSize == 0 {
		cfg.Audio.BlockSize = DefaultBlockSize
	}
	if cfg.Endpointing.MinDuration == 0 {
		cfg.Endpointing.MinDuration = Duration(DefaultMinDuration)
	}
	if cfg.Endpointing.SilenceTimeout == 0 {
		cfg.Endpointing.SilenceTimeout = Duration(DefaultSilenceTimeout)
	}
	if cfg.Sounds.Dir == "" {
		cfg.Sounds.Dir = DefaultSoundDir
	}
	if cfg.Storage.UtterancePath == "" {
		cfg.Storage.UtterancePath = DefaultUtterancePath
	}
	if cfg.Storage.ImagePath == "" {
		cfg.Storage.ImagePath = DefaultImagePath
	}
	if cfg.Interaction.RemoteTimeout == 0 {
		cfg.Interaction.RemoteTimeout = Duration(DefaultRemoteTimeout)
	}
	if cfg.Interaction.MaxTokens == 0 {
		cfg.Interaction.MaxTokens = DefaultMaxTokens
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation. Unknown names only warn, so third-party
	// registrations stay possible.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("recognizer", cfg.Providers.Recognizer.Name)

	// Every stage is on the critical path of an interaction.
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}
	if cfg.Providers.Recognizer.Name == "" {
		errs = append(errs, errors.New("providers.recognizer.name is required"))
	}

	// Audio
	if cfg.Audio.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is below the minimum of 8000", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is invalid; valid values: 1, 2", cfg.Audio.Channels))
	}
	if cfg.Audio.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("audio.block_size %d must not be negative", cfg.Audio.BlockSize))
	}

	// Endpointing
	if cfg.Endpointing.MinDuration < 0 {
		errs = append(errs, errors.New("endpointing.min_duration must not be negative"))
	}
	if cfg.Endpointing.SilenceTimeout < 0 {
		errs = append(errs, errors.New("endpointing.silence_timeout must not be negative"))
	}

	// Interaction
	if cfg.Interaction.RemoteTimeout < 0 {
		errs = append(errs, errors.New("interaction.remote_timeout must not be negative"))
	}
	if cfg.Interaction.MaxTokens < 0 {
		errs = append(errs, errors.New("interaction.max_tokens must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
