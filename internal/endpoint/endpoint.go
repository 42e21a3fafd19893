// Package endpoint decides when the user has finished speaking.
//
// The Detector consumes capture frames, writes every frame to the utterance
// recorder, and feeds the incremental speech recognizer. A committed
// recognizer result with non-empty text counts as voice activity. The
// utterance ends once the recording has run for at least the minimum
// duration and no activity has been heard for the silence timeout.
//
// Timing is driven entirely by capture timestamps, so tests feed synthetic
// frames and get fully deterministic endpoint decisions.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/argusworks/argus/pkg/audio"
	"github.com/argusworks/argus/pkg/provider/recognizer"
)

// Defaults match the assistant's tuned speech cadence: an utterance runs at
// least DefaultMinDuration, and ends after DefaultSilenceTimeout without a
// committed recognizer result.
const (
	DefaultMinDuration    = 5 * time.Second
	DefaultSilenceTimeout = 2 * time.Second
)

// ErrStreamClosed is returned when the capture stream ends before the
// endpoint condition fires.
var ErrStreamClosed = errors.New("endpoint: capture stream closed")

// Recorder receives every captured frame, in order, before recognition.
// *wav.Writer satisfies it.
type Recorder interface {
	Append(pcm []byte) error
}

// state tracks the detector through one utterance cycle.
type state int

const (
	stateIdle state = iota
	stateRecording
)

// Utterance summarises one completed detection cycle. Start and End are
// stream-relative capture offsets, the same clock [audio.Frame.Timestamp]
// runs on.
type Utterance struct {
	// Start is the capture offset of the first frame.
	Start time.Duration

	// End is the capture offset the endpoint fired at.
	End time.Duration

	// Voiced reports whether any committed recognizer text was heard.
	Voiced bool
}

// Duration is the recorded length of the utterance.
func (u Utterance) Duration() time.Duration {
	return u.End - u.Start
}

// Option configures a Detector.
type Option func(*Detector)

// WithMinDuration sets the minimum utterance duration.
func WithMinDuration(d time.Duration) Option {
	return func(det *Detector) { det.minDuration = d }
}

// WithSilenceTimeout sets the trailing-silence duration that ends an
// utterance.
func WithSilenceTimeout(d time.Duration) Option {
	return func(det *Detector) { det.silenceTimeout = d }
}

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(det *Detector) { det.logger = l }
}

// Detector runs endpoint detection cycles against a recognizer engine.
// Safe for sequential reuse; one cycle at a time.
type Detector struct {
	engine         recognizer.Engine
	format         audio.Format
	minDuration    time.Duration
	silenceTimeout time.Duration
	logger         *slog.Logger
}

// New creates a Detector. format describes the capture stream the detector
// will consume.
func New(engine recognizer.Engine, format audio.Format, opts ...Option) (*Detector, error) {
	if engine == nil {
		return nil, errors.New("endpoint: engine must not be nil")
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}
	d := &Detector{
		engine:         engine,
		format:         format,
		minDuration:    DefaultMinDuration,
		silenceTimeout: DefaultSilenceTimeout,
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.minDuration <= 0 || d.silenceTimeout <= 0 {
		return nil, errors.New("endpoint: durations must be positive")
	}
	return d, nil
}

// Detect runs one full utterance cycle: it consumes frames until the
// endpoint condition fires, appending every frame to rec and feeding the
// recognizer as it goes. A silent utterance is a valid outcome; Detect
// returns normally with Voiced false and rec holding the (quiet) recording.
//
// Detect returns ctx.Err() on cancellation and ErrStreamClosed if frames is
// closed before the endpoint fires.
func (d *Detector) Detect(ctx context.Context, frames <-chan audio.Frame, rec Recorder) (Utterance, error) {
	sess, err := d.engine.NewSession(ctx, recognizer.Config{SampleRate: d.format.SampleRate})
	if err != nil {
		return Utterance{}, fmt.Errorf("endpoint: new recognizer session: %w", err)
	}
	defer sess.Close()

	var (
		st        = stateIdle
		start     time.Duration
		lastVoice time.Duration
		voiced    bool
	)

	for {
		select {
		case <-ctx.Done():
			return Utterance{Start: start, Voiced: voiced}, ctx.Err()

		case frame, ok := <-frames:
			if !ok {
				return Utterance{Start: start, Voiced: voiced}, ErrStreamClosed
			}

			if st == stateIdle {
				start = frame.Timestamp
				lastVoice = start
				st = stateRecording
				d.logger.Debug("utterance started", "start", start)
			}

			// Record first: the WAV file must hold every frame even if
			// recognition fails mid-utterance.
			if err := rec.Append(frame.Data); err != nil {
				return Utterance{Start: start, Voiced: voiced}, fmt.Errorf("endpoint: record frame: %w", err)
			}

			res, err := sess.Accept(frame.Data)
			if err != nil {
				return Utterance{Start: start, Voiced: voiced}, fmt.Errorf("endpoint: recognizer: %w", err)
			}

			now := frame.Timestamp + frame.Duration()
			if res.Activity() {
				lastVoice = now
				voiced = true
				d.logger.Debug("voice activity", "text", res.Text)
			}

			if now-start > d.minDuration && now-lastVoice > d.silenceTimeout {
				// Finalizing: flush the recognizer so the next cycle
				// starts from a clean decoder state.
				sess.Reset()
				u := Utterance{Start: start, End: now, Voiced: voiced}
				d.logger.Info("utterance ended",
					"duration", u.Duration(),
					"voiced", voiced)
				return u, nil
			}
		}
	}
}
