package config_test

import (
	"strings"
	"testing"

	"github.com/argusworks/argus/internal/config"
)

func TestValidate_MissingProviders(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected errors for empty config, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{
		"providers.llm.name",
		"providers.stt.name",
		"providers.tts.name",
		"providers.recognizer.name",
	} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: chatty
providers:
  llm:
    name: openai
  stt:
    name: whisper
  tts:
    name: google
  recognizer:
    name: kaldi
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for bad log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_BadAudio(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  stt:
    name: whisper
  tts:
    name: google
  recognizer:
    name: kaldi
audio:
  sample_rate: 4000
  channels: 3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors for bad audio config, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "sample_rate") {
		t.Errorf("error should mention sample_rate, got: %v", err)
	}
	if !strings.Contains(errStr, "channels") {
		t.Errorf("error should mention channels, got: %v", err)
	}
}

func TestValidate_IncompleteTLS(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: /etc/argus/cert.pem
providers:
  llm:
    name: openai
  stt:
    name: whisper
  tts:
    name: google
  recognizer:
    name: kaldi
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for TLS without key_file, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error should mention key_file, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	llmNames := config.ValidProviderNames["llm"]
	if len(llmNames) == 0 {
		t.Fatal("ValidProviderNames[\"llm\"] should not be empty")
	}
	found := false
	for _, n := range llmNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"llm\"] should contain \"openai\"")
	}
}
