// Package miniaudio provides a microphone capture device backed by the
// miniaudio library via github.com/gen2brain/malgo. It implements
// [audio.CaptureDevice].
//
// The malgo data callback runs on a real-time-priority audio thread, so it
// must never block. Captured bytes are appended to an unbounded queue under a
// mutex and a pump goroutine cuts them into fixed-size frames for delivery;
// a slow consumer makes the queue grow instead of dropping audio.
package miniaudio

import (
	"context"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/argusworks/argus/pkg/audio"
)

// Compile-time assertion that Device satisfies audio.CaptureDevice.
var _ audio.CaptureDevice = (*Device)(nil)

// Device opens microphone streams through miniaudio. The zero value is not
// usable; construct with [New].
type Device struct {
	deviceID *malgo.DeviceID // nil = system default
}

// Option is a functional option for configuring a Device.
type Option func(*Device)

// WithDeviceID selects a specific capture device instead of the system
// default.
func WithDeviceID(id malgo.DeviceID) Option {
	return func(d *Device) { d.deviceID = &id }
}

// New constructs a capture Device.
func New(opts ...Option) *Device {
	d := &Device{}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Open implements [audio.CaptureDevice]. The malgo context and device are
// initialised synchronously; any driver failure is reported as a
// [*audio.DeviceError] and nothing is retried.
func (d *Device) Open(_ context.Context, cfg audio.StreamConfig) (audio.CaptureStream, error) {
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.BlockSize <= 0 {
		return nil, &audio.DeviceError{Op: "open capture", Err: errBlockSize(cfg.BlockSize)}
	}

	ctxCfg := malgo.ContextConfig{}
	ctxCfg.ThreadPriority = malgo.ThreadPriorityRealtime

	mctx, err := malgo.InitContext(nil, ctxCfg, nil)
	if err != nil {
		return nil, &audio.DeviceError{Op: "init audio context", Err: err}
	}

	s := &stream{
		mctx:       mctx,
		format:     cfg.Format,
		blockBytes: cfg.BlockSize * cfg.Format.Channels * 2,
		out:        make(chan audio.Frame),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(cfg.Format.Channels)
	devCfg.SampleRate = uint32(cfg.Format.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(cfg.BlockSize)
	if d.deviceID != nil {
		devCfg.Capture.DeviceID = d.deviceID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.push(input)
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, devCfg, callbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return nil, &audio.DeviceError{Op: "init capture device", Err: err}
	}
	s.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		mctx.Uninit()
		mctx.Free()
		return nil, &audio.DeviceError{Op: "start capture device", Err: err}
	}

	go s.pump()
	return s, nil
}

type errBlockSize int

func (e errBlockSize) Error() string { return "block size must be positive" }

// stream is one open capture session.
type stream struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device

	format     audio.Format
	blockBytes int
	out        chan audio.Frame

	mu      sync.Mutex
	pending []byte // bytes received but not yet cut into a full block
	queue   [][]byte
	samples int64 // total samples captured, for frame timestamps
	closed  bool

	wake chan struct{} // signals the pump that the queue changed
	done chan struct{} // closed by Close; unblocks a pump stuck on delivery

	closeOnce sync.Once
}

// push is called from the real-time audio thread. It only appends and
// signals; the heavy lifting happens in the pump goroutine.
func (s *stream) push(input []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, input...)
	for len(s.pending) >= s.blockBytes {
		block := make([]byte, s.blockBytes)
		copy(block, s.pending)
		s.pending = s.pending[s.blockBytes:]
		s.queue = append(s.queue, block)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump delivers queued blocks to the consumer in capture order. Delivery
// blocks on the consumer; the queue absorbs the backlog.
func (s *stream) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			<-s.wake
			s.mu.Lock()
		}
		block := s.queue[0]
		s.queue = s.queue[1:]
		ts := time.Duration(s.samples) * time.Second / time.Duration(s.format.SampleRate)
		s.samples += int64(len(block) / (2 * s.format.Channels))
		s.mu.Unlock()

		frame := audio.Frame{
			Data:       block,
			SampleRate: s.format.SampleRate,
			Channels:   s.format.Channels,
			Timestamp:  ts,
		}
		select {
		case s.out <- frame:
		case <-s.done:
			// Consumer is gone; remaining blocks are discarded.
			return
		}
	}
}

// Frames implements [audio.CaptureStream].
func (s *stream) Frames() <-chan audio.Frame { return s.out }

// Close implements [audio.CaptureStream]. It stops the device, releases the
// driver context, and lets the pump drain whatever is already queued before
// closing the frame channel.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.device.Stop()
		s.device.Uninit()
		s.mctx.Uninit()
		s.mctx.Free()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		select {
		case s.wake <- struct{}{}:
		default:
		}
	})
	return nil
}
