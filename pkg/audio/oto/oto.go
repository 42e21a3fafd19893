// Package oto provides a speaker output device backed by
// github.com/ebitengine/oto/v3. It implements [audio.OutputDevice].
//
// oto permits exactly one context per process, so the Device owns a single
// context at a fixed mix format and every [audio.Sink] converts its source
// PCM to that format on write. Exclusivity is enforced here as well: a second
// Acquire while a sink is still open fails with a device error rather than
// letting two playback operations interleave.
package oto

import (
	"errors"
	"io"
	"sync"
	"time"

	otolib "github.com/ebitengine/oto/v3"

	"github.com/argusworks/argus/pkg/audio"
)

// Compile-time assertion that Device satisfies audio.OutputDevice.
var _ audio.OutputDevice = (*Device)(nil)

// defaultMixFormat is the context format all playback is converted to.
// 48 kHz stereo covers every source in the pipeline (16 kHz mono cues,
// 24 kHz TTS output, 44.1 kHz MP3 assets) without audible loss.
var defaultMixFormat = audio.Format{SampleRate: 48000, Channels: 2}

// drainPollInterval is how often Drain re-checks the device buffer.
const drainPollInterval = 10 * time.Millisecond

// Device is the process-wide speaker handle. Construct with [New]; the
// underlying oto context is created lazily on first Acquire because oto
// forbids re-initialisation.
type Device struct {
	mixFormat audio.Format

	initOnce sync.Once
	ctx      *otolib.Context
	initErr  error

	mu   sync.Mutex
	held bool
}

// Option is a functional option for configuring a Device.
type Option func(*Device)

// WithMixFormat overrides the context mix format. Must be chosen before the
// first Acquire; later changes have no effect.
func WithMixFormat(f audio.Format) Option {
	return func(d *Device) { d.mixFormat = f }
}

// New constructs a Device. No audio hardware is touched until the first
// Acquire call.
func New(opts ...Option) *Device {
	d := &Device{mixFormat: defaultMixFormat}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Device) init() {
	op := &otolib.NewContextOptions{
		SampleRate:   d.mixFormat.SampleRate,
		ChannelCount: d.mixFormat.Channels,
		Format:       otolib.FormatSignedInt16LE,
	}
	ctx, ready, err := otolib.NewContext(op)
	if err != nil {
		d.initErr = err
		return
	}
	<-ready
	d.ctx = ctx
}

// Acquire implements [audio.OutputDevice]. It fails with a
// [*audio.DeviceError] if the speaker cannot be opened or if a previously
// acquired sink has not been released yet.
func (d *Device) Acquire(f audio.Format) (audio.Sink, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	d.initOnce.Do(d.init)
	if d.initErr != nil {
		return nil, &audio.DeviceError{Op: "acquire sink", Err: d.initErr}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held {
		return nil, &audio.DeviceError{Op: "acquire sink", Err: errors.New("device already held by another playback")}
	}
	d.held = true

	s := &sink{
		device: d,
		src:    f,
		mix:    d.mixFormat,
	}
	s.cond = sync.NewCond(&s.bufMu)
	s.player = d.ctx.NewPlayer(s)
	s.player.Play()
	return s, nil
}

func (d *Device) release() {
	d.mu.Lock()
	d.held = false
	d.mu.Unlock()
}

// sink is an exclusive playback handle. The oto player pulls converted PCM
// from the internal buffer via the io.Reader interface.
type sink struct {
	device *Device
	src    audio.Format
	mix    audio.Format
	player *otolib.Player

	bufMu  sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

// Write implements [audio.Sink]. The source PCM is converted to the mix
// format and queued for the player.
func (s *sink) Write(pcm []byte) error {
	converted := audio.ConvertPCM(pcm, s.src, s.mix)

	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	if s.closed {
		return errors.New("oto: write to closed sink")
	}
	s.buf = append(s.buf, converted...)
	s.cond.Signal()
	return nil
}

// Read implements io.Reader for the oto player. It blocks until data is
// available or the sink is closed.
func (s *sink) Read(p []byte) (int, error) {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed && len(s.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	s.cond.Signal()
	return n, nil
}

// Drain implements [audio.Sink]. It blocks until the queue and the device
// buffer are both empty, i.e. the audio has audibly finished.
func (s *sink) Drain() error {
	s.bufMu.Lock()
	for len(s.buf) > 0 && !s.closed {
		s.cond.Wait()
	}
	closed := s.closed
	s.bufMu.Unlock()
	if closed {
		return errors.New("oto: drain on closed sink")
	}

	for s.player.BufferedSize() > 0 {
		time.Sleep(drainPollInterval)
	}
	return nil
}

// Close implements [audio.Sink]. Buffered audio is discarded and the device
// is released. Safe to call more than once.
func (s *sink) Close() error {
	s.bufMu.Lock()
	if s.closed {
		s.bufMu.Unlock()
		return nil
	}
	s.closed = true
	s.buf = nil
	s.cond.Broadcast()
	s.bufMu.Unlock()

	s.player.Close()
	s.device.release()
	return nil
}
