package llm

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string

	// ImageData is an optional JPEG image attached to a user message.
	// Providers encode it as a base64 data URL. Only backends whose
	// Capabilities report SupportsVision accept it.
	ImageData []byte
}

// CompletionRequest carries everything the LLM needs to produce a response.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before the
	// conversation. Providers without a dedicated system slot prepend it as
	// a "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// HasImage reports whether any message in the request carries image data.
func (r CompletionRequest) HasImage() bool {
	for _, m := range r.Messages {
		if len(m.ImageData) > 0 {
			return true
		}
	}
	return false
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one
	// completion.
	MaxOutputTokens int

	// SupportsVision indicates the model can process image inputs.
	SupportsVision bool
}
