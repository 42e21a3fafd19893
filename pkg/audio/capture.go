// Package audio defines the interfaces and types for audio device connectivity
// within Argus.
//
// The two primary abstractions are:
//
//   - [CaptureDevice]: opens the microphone and returns a [CaptureStream]
//     delivering fixed-size PCM frames in strict capture order.
//   - [OutputDevice]: grants scoped, exclusive access to the speaker via
//     [Sink] handles, acquired immediately before playback and released
//     immediately after.
//
// Implementations live in device-specific subpackages (audio/malgo,
// audio/oto). The interfaces are intentionally narrow so the orchestrator and
// the endpoint detector stay decoupled from driver details, and so tests can
// substitute the mock subpackage.
package audio

import "context"

// StreamConfig describes the capture format requested from a [CaptureDevice].
type StreamConfig struct {
	// Format is the PCM format to capture. The pipeline standard is
	// 16 kHz mono.
	Format Format

	// BlockSize is the number of samples per delivered [Frame]. Smaller
	// blocks lower endpointing latency; larger blocks reduce per-frame
	// overhead. The original hardware profile uses 8000 samples (500 ms).
	BlockSize int
}

// CaptureStream is an open microphone stream.
//
// Frames are delivered in strict temporal order and none are dropped under
// normal load: if the consumer falls behind, frames queue (bounded only by
// memory) rather than being discarded, because losing audio corrupts the
// transcript.
type CaptureStream interface {
	// Frames returns the channel on which captured frames are delivered.
	// The channel is closed after Close, once all queued frames have been
	// drained by the consumer or discarded by the stream teardown.
	Frames() <-chan Frame

	// Close stops capture and releases the input device. Safe to call more
	// than once; subsequent calls are no-ops and return nil.
	Close() error
}

// CaptureDevice opens microphone streams. Implementations wrap an audio
// driver (miniaudio via malgo in production) and must be safe for concurrent
// use, though the orchestrator opens at most one stream at a time.
type CaptureDevice interface {
	// Open starts capturing with the given configuration. The ctx governs
	// only the open attempt; a returned stream stays alive until Close.
	//
	// A device that cannot be acquired fails fast with a [*DeviceError];
	// no retry is attempted.
	Open(ctx context.Context, cfg StreamConfig) (CaptureStream, error)
}
