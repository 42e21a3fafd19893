package anyllm

import (
	"context"
	"testing"

	"github.com/argusworks/argus/pkg/provider/llm"
)

// ── buildParams ───────────────────────────────────────────────────────────────

// TestBuildParams_SystemPrompt checks that the system prompt is prepended as
// the first message.
func TestBuildParams_SystemPrompt(t *testing.T) {
	p := &Provider{model: "gpt-4o-mini"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are helpful.",
		Messages:     []llm.Message{{Role: "user", Content: "Hello!"}},
	})
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != "system" {
		t.Errorf("expected first message role system, got %q", params.Messages[0].Role)
	}
	if params.Messages[1].Role != "user" {
		t.Errorf("expected second message role user, got %q", params.Messages[1].Role)
	}
	if params.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", params.Model)
	}
}

// TestBuildParams_MaxTokens checks that MaxTokens is forwarded only when set.
func TestBuildParams_MaxTokens(t *testing.T) {
	p := &Provider{model: "llama3.1"}

	params := p.buildParams(llm.CompletionRequest{MaxTokens: 256})
	if params.MaxTokens == nil || *params.MaxTokens != 256 {
		t.Errorf("expected MaxTokens 256, got %v", params.MaxTokens)
	}

	params = p.buildParams(llm.CompletionRequest{})
	if params.MaxTokens != nil {
		t.Errorf("expected nil MaxTokens for zero value, got %v", params.MaxTokens)
	}
}

// ── Complete ──────────────────────────────────────────────────────────────────

// TestComplete_RejectsImages checks that image-bearing requests fail before
// reaching the backend.
func TestComplete_RejectsImages(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	req := llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "look", ImageData: []byte{1, 2, 3}}},
	}
	if _, err := p.Complete(context.Background(), req); err == nil {
		t.Fatal("expected error for image input, got nil")
	}
}

// ── Capabilities ──────────────────────────────────────────────────────────────

// TestCapabilities_VisionAlwaysFalse checks that vision is never reported,
// even for models that could support it.
func TestCapabilities_VisionAlwaysFalse(t *testing.T) {
	for _, model := range []string{"gpt-4o", "claude-3-5-sonnet-latest", "gemini-1.5-pro", "llama3.1"} {
		p := &Provider{model: model}
		if p.Capabilities().SupportsVision {
			t.Errorf("%s: expected SupportsVision=false", model)
		}
	}
}

// TestCapabilities_KnownModels spot-checks context windows per model family.
func TestCapabilities_KnownModels(t *testing.T) {
	tests := []struct {
		model  string
		window int
	}{
		{"gpt-4o-mini", 128_000},
		{"gpt-3.5-turbo", 16_385},
		{"claude-3-5-sonnet-latest", 200_000},
		{"gemini-1.5-pro", 2_000_000},
		{"mistral-large", 32_768},
		{"totally-unknown", 128_000},
	}
	for _, tt := range tests {
		caps := modelCapabilities(tt.model)
		if caps.ContextWindow != tt.window {
			t.Errorf("%s: expected context window %d, got %d", tt.model, tt.window, caps.ContextWindow)
		}
	}
}

// ── New ───────────────────────────────────────────────────────────────────────

// TestNew_Validation checks constructor argument validation.
func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty provider name")
	}
	if _, err := New("ollama", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("not-a-provider", "some-model"); err == nil {
		t.Error("expected error for unsupported provider name")
	}
}
