// Package llm defines the Provider interface for Large Language Model
// backends.
//
// An LLM provider wraps a remote model API (e.g., OpenAI GPT-4o, Anthropic
// Claude, or a local Ollama instance) and exposes a uniform interface for the
// turn orchestrator to perform completions, with or without an attached
// image, without coupling to any specific SDK.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends the request and returns the assistant's reply text.
	// The call is synchronous and network-bound; callers bound it with a
	// context deadline. Requests carrying image data require a backend with
	// vision support; check Capabilities().SupportsVision first.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Capabilities describes what the configured model supports.
	Capabilities() ModelCapabilities
}
