// Package transcribe defines the Provider interface for batch audio
// transcription backends.
//
// Unlike pkg/provider/recognizer, which feeds the endpoint detector with
// low-fidelity incremental results during recording, a transcribe provider
// produces the authoritative transcript of a finished utterance recording,
// typically via a remote API (OpenAI Whisper).
//
// Implementations must be safe for concurrent use.
package transcribe

import "context"

// Provider is the abstraction over any batch speech-to-text backend.
type Provider interface {
	// TranscribeFile uploads the audio file at path and returns the decoded
	// text. An empty transcript is a valid, non-error outcome: it means no
	// speech was detected in the recording, and downstream code treats an
	// empty question as acceptable input.
	TranscribeFile(ctx context.Context, path string) (string, error)
}
