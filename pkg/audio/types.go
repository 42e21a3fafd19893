package audio

import (
	"errors"
	"fmt"
	"time"
)

// Frame represents a single block of captured audio flowing through the
// pipeline. Frames are the atomic unit of audio transport: produced by a
// capture stream, inspected by the endpoint detector, and appended to the
// utterance recording. A Frame is immutable once produced; ownership passes
// from the producer to the single consumer via a channel.
type Frame struct {
	// PCM audio data, 16-bit signed little-endian.
	Data []byte

	// SampleRate in Hz (16000 for the recognition pipeline).
	SampleRate int

	// Channels: 1 for mono. The pipeline is mono end to end.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the play length of the frame's PCM payload.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / (2 * f.Channels)
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Format describes a raw PCM audio format. It is shared by capture streams,
// the utterance recorder, and output sinks.
type Format struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is the channel count (1 = mono).
	Channels int
}

// BytesPerSecond returns the byte rate of 16-bit PCM in this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Validate reports whether the format is usable for 16-bit PCM transport.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("audio: channel count must be positive, got %d", f.Channels)
	}
	return nil
}

// ErrDeviceUnavailable is the sentinel wrapped by every [DeviceError]. Use
// errors.Is(err, audio.ErrDeviceUnavailable) to classify hardware failures
// without depending on a concrete device package.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// DeviceError reports that an audio input or output device could not be
// acquired or failed mid-operation. Device errors are fatal to the current
// interaction and are never retried automatically; a human must intervene
// (unplugged microphone, exclusive-mode conflict, missing driver).
type DeviceError struct {
	// Op is the failing operation ("open capture", "acquire sink", ...).
	Op string

	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio: %s: %v", e.Op, e.Err)
}

// Unwrap supports errors.Is/errors.As chains.
func (e *DeviceError) Unwrap() error { return e.Err }

// Is matches against [ErrDeviceUnavailable] so callers can classify any
// DeviceError with a single sentinel.
func (e *DeviceError) Is(target error) bool { return target == ErrDeviceUnavailable }
