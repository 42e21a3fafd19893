// Package recognizer defines the Engine interface for incremental speech
// recognition backends used by the endpoint detector.
//
// A recognizer engine wraps a streaming decoder (e.g., a Kaldi/vosk server)
// and surfaces it as a stateful, per-utterance session: audio blocks go in,
// partial and committed text comes out. The endpoint detector does not care
// about transcription quality here; it only needs "did this block complete a
// result with non-empty text" to track voice activity. The authoritative
// transcript of the recording comes later from pkg/provider/transcribe.
//
// Implementations must be safe for concurrent use across different sessions.
// A single Session is driven by one goroutine (the detector loop) and need
// not be concurrency-safe itself.
package recognizer

import "context"

// Config holds the audio parameters for a recognition session.
type Config struct {
	// SampleRate is the PCM sample rate in Hz. Must match the blocks passed
	// to Accept. The pipeline standard is 16000.
	SampleRate int
}

// Result is the outcome of feeding one audio block to the decoder.
type Result struct {
	// Text is the decoded text. For the endpoint detector only committed
	// (non-partial) results with non-empty text count as voice activity.
	Text string

	// Partial reports whether Text is an interim hypothesis that may still
	// change, as opposed to a committed result.
	Partial bool
}

// Activity reports whether this result counts as detected voice activity:
// a committed result carrying non-empty decoded text.
func (r Result) Activity() bool {
	return !r.Partial && r.Text != ""
}

// Session represents an active recognition session for a single utterance.
//
// Accept must tolerate malformed decoder output: an unparsable response is
// reported as an empty Result, never as an error, because a glitchy
// recognizer must not abort a recording in progress.
type Session interface {
	// Accept feeds one block of 16-bit little-endian PCM to the decoder and
	// returns whatever result the decoder produced for it. A zero Result
	// means the block yielded nothing noteworthy.
	Accept(pcm []byte) (Result, error)

	// Reset clears accumulated decoder state so the session can be reused
	// for a fresh utterance.
	Reset()

	// Close releases the session. Safe to call more than once.
	Close() error
}

// Engine is the factory for recognition sessions.
type Engine interface {
	// NewSession opens a session with the given configuration. The session
	// is immediately ready to accept audio blocks. The ctx governs the
	// session's lifetime; cancelling it invalidates the session.
	NewSession(ctx context.Context, cfg Config) (Session, error)
}
