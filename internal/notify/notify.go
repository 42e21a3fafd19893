// Package notify plays notification cues and synthesized answers through the
// single shared output device.
//
// One Controller owns the device for every kind of playback, which is what
// enforces the core audio invariant: a looping "thinking" cue and a spoken
// answer can never sound at the same time, because both run through the same
// exclusive sink acquisition. Stop joins the loop goroutine before
// returning, so the caller knows the device is free.
//
// Sound assets live in a configured directory as System_<id>.mp3 or
// System_<id>.wav.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	mp3lib "github.com/hajimehoshi/go-mp3"

	"github.com/argusworks/argus/pkg/audio"
	"github.com/argusworks/argus/pkg/audio/wav"
	"github.com/argusworks/argus/pkg/provider/tts"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller serialises all playback through one output device.
// Safe for concurrent use.
type Controller struct {
	device audio.OutputDevice
	dir    string
	logger *slog.Logger

	mu         sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	// playMu serialises individual clip playbacks so a one-shot cue and a
	// loop iteration never race for the device.
	playMu sync.Mutex
}

// New creates a Controller playing assets from soundDir on device.
func New(device audio.OutputDevice, soundDir string, opts ...Option) (*Controller, error) {
	if device == nil {
		return nil, errors.New("notify: device must not be nil")
	}
	if soundDir == "" {
		return nil, errors.New("notify: soundDir must not be empty")
	}
	c := &Controller{
		device: device,
		dir:    soundDir,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// PlayOnce plays the named cue to completion. Cue playback is cosmetic:
// errors are logged and swallowed so a missing or corrupt asset never aborts
// an interaction.
func (c *Controller) PlayOnce(id string) {
	if err := c.playClip(id); err != nil {
		c.logger.Warn("notification playback failed", "sound", id, "error", err)
	}
}

// StartLoop begins looping the named cue in the background and returns
// immediately. Starting a loop while another is running stops the previous
// one first; there is never more than one active notification. The state
// mutex is held across the whole stop-and-replace, so concurrent starts
// cannot orphan a running loop.
func (c *Controller) StartLoop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.loopCancel = cancel
	c.loopDone = done

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := c.playClip(id); err != nil {
				c.logger.Warn("loop playback failed", "sound", id, "error", err)
				// Keep looping; the cue is cosmetic and the device may
				// recover. Back off so a dead device does not spin hot.
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
			}
		}
	}()
}

// Stop ends the active loop, if any, and joins its goroutine before
// returning. Safe to call repeatedly and when nothing is playing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// stopLocked cancels and joins the active loop. Caller holds c.mu; the loop
// goroutine never takes it, so joining under the lock cannot deadlock.
func (c *Controller) stopLocked() {
	if c.loopCancel == nil {
		return
	}
	c.loopCancel()
	<-c.loopDone
	c.loopCancel = nil
	c.loopDone = nil
}

// PlayAudio plays a synthesized answer clip. Unlike cue playback, failures
// here are real errors: an answer the user never hears is a failed turn.
// The caller must Stop any loop first; PlayAudio still serialises against a
// late loop iteration via the shared playback lock.
func (c *Controller) PlayAudio(speech *tts.Speech) error {
	if speech == nil || len(speech.Data) == 0 {
		return errors.New("notify: empty speech")
	}
	pcm, format, err := decodeSpeech(speech)
	if err != nil {
		return fmt.Errorf("notify: decode speech: %w", err)
	}
	if err := c.playPCM(pcm, format); err != nil {
		return fmt.Errorf("notify: play speech: %w", err)
	}
	return nil
}

// playClip loads, decodes, and plays one sound asset to completion.
func (c *Controller) playClip(id string) error {
	pcm, format, err := c.loadSound(id)
	if err != nil {
		return err
	}
	return c.playPCM(pcm, format)
}

// playPCM acquires the device, writes the clip, drains, and releases.
func (c *Controller) playPCM(pcm []byte, format audio.Format) error {
	c.playMu.Lock()
	defer c.playMu.Unlock()

	sink, err := c.device.Acquire(format)
	if err != nil {
		return fmt.Errorf("acquire output: %w", err)
	}
	defer sink.Close()

	if err := sink.Write(pcm); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := sink.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

// loadSound reads and decodes System_<id>.mp3 or System_<id>.wav from the
// sound directory, preferring the MP3.
func (c *Controller) loadSound(id string) ([]byte, audio.Format, error) {
	base := filepath.Join(c.dir, "System_"+id)

	if data, err := os.ReadFile(base + ".mp3"); err == nil {
		return decodeMP3(data)
	}
	if data, err := os.ReadFile(base + ".wav"); err == nil {
		return wav.Decode(data)
	}
	return nil, audio.Format{}, fmt.Errorf("sound asset %q not found in %s", id, c.dir)
}

// decodeSpeech converts a TTS clip to raw PCM and its format.
func decodeSpeech(speech *tts.Speech) ([]byte, audio.Format, error) {
	switch speech.Encoding {
	case tts.EncodingMP3:
		return decodeMP3(speech.Data)

	case tts.EncodingLinear16:
		// Google wraps LINEAR16 in a WAV container; ElevenLabs sends raw
		// headerless PCM. Sniff the RIFF magic to tell them apart.
		if bytes.HasPrefix(speech.Data, []byte("RIFF")) {
			return wav.Decode(speech.Data)
		}
		if speech.SampleRate <= 0 {
			return nil, audio.Format{}, errors.New("raw PCM without a sample rate")
		}
		return speech.Data, audio.Format{SampleRate: speech.SampleRate, Channels: 1}, nil

	default:
		return nil, audio.Format{}, fmt.Errorf("unsupported encoding %q", speech.Encoding)
	}
}

// decodeMP3 decodes an MP3 clip to 16-bit stereo PCM.
func decodeMP3(data []byte) ([]byte, audio.Format, error) {
	dec, err := mp3lib.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("mp3 decode: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("mp3 read: %w", err)
	}
	// go-mp3 always outputs 16-bit two-channel PCM at the source rate.
	return pcm, audio.Format{SampleRate: dec.SampleRate(), Channels: 2}, nil
}
