// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., Google Cloud TTS or
// ElevenLabs) and presents a uniform batch interface: text in, one encoded
// audio clip out. The assistant speaks short answers, so batch synthesis
// keeps the providers simple; the playback layer decodes whatever encoding
// the provider returns.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders the request text as a single audio clip. The call
	// is synchronous and network-bound; callers bound it with a context
	// deadline. Implementations should return an error for empty text
	// rather than produce silence.
	Synthesize(ctx context.Context, req SpeechRequest) (*Speech, error)
}
