// Package mock provides in-memory mock implementations of the
// [audio.CaptureDevice], [audio.CaptureStream], [audio.OutputDevice], and
// [audio.Sink] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// The OutputDevice additionally enforces the pipeline's central concurrency
// invariant: it fails any Acquire that overlaps a still-open Sink, so a test
// exercising the notification controller or the orchestrator catches device
// contention for free.
//
// Typical usage:
//
//	stream := mock.NewCaptureStream()
//	dev := &mock.CaptureDevice{OpenResult: stream}
//	go func() {
//	    stream.Push(frame)
//	    stream.Close()
//	}()
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/argusworks/argus/pkg/audio"
)

// ─── CaptureDevice ────────────────────────────────────────────────────────────

// CaptureDevice is a mock implementation of [audio.CaptureDevice].
// Set the exported Result fields before use; inspect the Call* fields after.
type CaptureDevice struct {
	mu sync.Mutex

	// OpenResult is returned by [CaptureDevice.Open] when OpenError is nil.
	OpenResult audio.CaptureStream

	// OpenError is returned by [CaptureDevice.Open] when non-nil.
	OpenError error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int

	// RecordedConfigs holds the StreamConfig of each Open call, in order.
	RecordedConfigs []audio.StreamConfig
}

// Open implements [audio.CaptureDevice].
func (d *CaptureDevice) Open(_ context.Context, cfg audio.StreamConfig) (audio.CaptureStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountOpen++
	d.RecordedConfigs = append(d.RecordedConfigs, cfg)
	if d.OpenError != nil {
		return nil, d.OpenError
	}
	return d.OpenResult, nil
}

// ─── CaptureStream ────────────────────────────────────────────────────────────

// CaptureStream is a scripted [audio.CaptureStream]. Feed it frames with
// [CaptureStream.Push]; close it with [CaptureStream.Close].
type CaptureStream struct {
	ch chan audio.Frame

	mu     sync.Mutex
	closed bool

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// NewCaptureStream creates a CaptureStream with a generous buffer so tests
// can push a whole scripted utterance without a consumer.
func NewCaptureStream() *CaptureStream {
	return &CaptureStream{ch: make(chan audio.Frame, 256)}
}

// Push delivers a frame to the consumer. Push after Close panics, matching
// the real stream's ownership contract.
func (s *CaptureStream) Push(f audio.Frame) {
	s.ch <- f
}

// Frames implements [audio.CaptureStream].
func (s *CaptureStream) Frames() <-chan audio.Frame { return s.ch }

// Close implements [audio.CaptureStream].
func (s *CaptureStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// ─── OutputDevice ─────────────────────────────────────────────────────────────

// ErrOverlappingAcquire is returned by [OutputDevice.Acquire] when a prior
// Sink has not been closed: the overlap the real pipeline must never allow.
var ErrOverlappingAcquire = errors.New("mock: overlapping sink acquire")

// OutputDevice is a mock implementation of [audio.OutputDevice] that records
// every acquire/release cycle and rejects overlapping acquires.
type OutputDevice struct {
	mu sync.Mutex

	// AcquireError, when non-nil, is returned by every Acquire call.
	AcquireError error

	// WriteError, when non-nil, is returned by Sink.Write on acquired sinks.
	WriteError error

	// CallCountAcquire records how many times Acquire was called.
	CallCountAcquire int

	// RecordedFormats holds the Format of each successful Acquire, in order.
	RecordedFormats []audio.Format

	// Sinks holds every sink handed out, in acquire order. Inspect a sink's
	// Written field for the PCM it received.
	Sinks []*Sink

	// held is the currently open sink, nil when released.
	held *Sink
}

// Acquire implements [audio.OutputDevice].
func (d *OutputDevice) Acquire(f audio.Format) (audio.Sink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountAcquire++
	if d.AcquireError != nil {
		return nil, d.AcquireError
	}
	if d.held != nil {
		return nil, ErrOverlappingAcquire
	}
	s := &Sink{device: d, Format: f, writeError: d.WriteError}
	d.held = s
	d.RecordedFormats = append(d.RecordedFormats, f)
	d.Sinks = append(d.Sinks, s)
	return s, nil
}

// Acquires returns the current acquire count. Use it instead of reading
// CallCountAcquire while other goroutines may still be playing.
func (d *OutputDevice) Acquires() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.CallCountAcquire
}

// SinkList returns a snapshot of the sinks handed out so far.
func (d *OutputDevice) SinkList() []*Sink {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Sink, len(d.Sinks))
	copy(out, d.Sinks)
	return out
}

// Held reports whether a sink is currently open.
func (d *OutputDevice) Held() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held != nil
}

func (d *OutputDevice) release(s *Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held == s {
		d.held = nil
	}
}

// Sink is the playback handle produced by [OutputDevice.Acquire].
type Sink struct {
	device *OutputDevice

	// Format is the format this sink was acquired with.
	Format audio.Format

	writeError error

	mu sync.Mutex

	// Written accumulates all PCM passed to Write.
	Written []byte

	// CallCountWrite, CallCountDrain, and CallCountClose record call counts.
	CallCountWrite int
	CallCountDrain int
	CallCountClose int

	closed bool
}

// Write implements [audio.Sink].
func (s *Sink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountWrite++
	if s.closed {
		return errors.New("mock: write to closed sink")
	}
	if s.writeError != nil {
		return s.writeError
	}
	s.Written = append(s.Written, pcm...)
	return nil
}

// Drain implements [audio.Sink]. It returns immediately; mock playback is
// instantaneous.
func (s *Sink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountDrain++
	if s.closed {
		return errors.New("mock: drain on closed sink")
	}
	return nil
}

// Close implements [audio.Sink] and releases the device.
func (s *Sink) Close() error {
	s.mu.Lock()
	s.CallCountClose++
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if !already {
		s.device.release(s)
	}
	return nil
}

// Closed reports whether Close has been called.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Bytes returns a copy of the PCM written so far.
func (s *Sink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.Written))
	copy(out, s.Written)
	return out
}
