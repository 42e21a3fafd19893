package audio

// Sink is an exclusively held playback handle on the output device.
//
// A Sink is acquired immediately before playback and must be released
// (Close) immediately after, on every exit path: completed, interrupted, or
// failed. Whoever holds the Sink owns the speaker; there is never more than
// one live Sink per [OutputDevice].
type Sink interface {
	// Write queues 16-bit little-endian PCM for playback. Write may block
	// while the device buffer is full; it returns an error if the sink has
	// been closed.
	Write(pcm []byte) error

	// Drain blocks until all written audio has been played out. Call before
	// Close when playback must audibly complete (one-shot cues, the
	// synthesized answer).
	Drain() error

	// Close releases the device. Audio still buffered is discarded. Safe to
	// call more than once; subsequent calls return nil.
	Close() error
}

// OutputDevice grants exclusive playback access to the speaker.
//
// Acquire while a previous Sink is still open is a caller bug: the contract is
// full release-then-acquire, never concurrent access, because overlapping
// output from two sources must never be audible. Implementations are free to
// return a [*DeviceError] or to panic in test doubles that assert the
// invariant.
type OutputDevice interface {
	// Acquire opens the device for playback of PCM in the given format and
	// returns the exclusive [Sink]. Fails with a [*DeviceError] if the
	// device cannot be opened.
	Acquire(f Format) (Sink, error)
}
