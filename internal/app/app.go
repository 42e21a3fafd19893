// Package app wires all Argus subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock devices via functional options (WithCaptureDevice,
// WithOutputDevice). When an option is not provided, New creates real device
// implementations.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/argusworks/argus/internal/config"
	"github.com/argusworks/argus/internal/endpoint"
	"github.com/argusworks/argus/internal/health"
	"github.com/argusworks/argus/internal/imagestore"
	"github.com/argusworks/argus/internal/notify"
	"github.com/argusworks/argus/internal/observe"
	"github.com/argusworks/argus/internal/server"
	"github.com/argusworks/argus/internal/session"
	"github.com/argusworks/argus/internal/turn"
	"github.com/argusworks/argus/pkg/audio"
	"github.com/argusworks/argus/pkg/audio/miniaudio"
	otodevice "github.com/argusworks/argus/pkg/audio/oto"
	"github.com/argusworks/argus/pkg/provider/llm"
	"github.com/argusworks/argus/pkg/provider/recognizer"
	"github.com/argusworks/argus/pkg/provider/transcribe"
	"github.com/argusworks/argus/pkg/provider/tts"
)

// soundStart is the boot confirmation sound, played once the server is up.
const soundStart = "Start"

// Providers holds one interface value per provider slot. All slots are
// required. Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	STT        transcribe.Provider
	TTS        tts.Provider
	Recognizer recognizer.Engine
}

// App owns all subsystem lifetimes and serves the assistant's HTTP surface.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	// Subsystems, initialised in New, torn down in Shutdown.
	capture  audio.CaptureDevice
	output   audio.OutputDevice
	images   *imagestore.Store
	history  *session.History
	notifier *notify.Controller
	orch     *turn.Orchestrator
	httpSrv  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCaptureDevice injects a capture device instead of opening the default
// microphone.
func WithCaptureDevice(d audio.CaptureDevice) Option {
	return func(a *App) { a.capture = d }
}

// WithOutputDevice injects an output device instead of opening the default
// speaker.
func WithOutputDevice(d audio.OutputDevice) Option {
	return func(a *App) { a.output = d }
}

// WithMetrics injects a metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil || providers.STT == nil ||
		providers.TTS == nil || providers.Recognizer == nil {
		return nil, errors.New("app: all providers must be configured")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.capture == nil {
		a.capture = miniaudio.New()
	}
	if a.output == nil {
		a.output = otodevice.New()
	}

	if err := a.initStores(); err != nil {
		return nil, err
	}
	if err := a.initPipeline(); err != nil {
		return nil, err
	}
	a.initHTTP()

	return a, nil
}

// initStores sets up the image store and conversation history.
func (a *App) initStores() error {
	images, err := imagestore.New(a.cfg.Storage.ImagePath)
	if err != nil {
		return fmt.Errorf("app: init image store: %w", err)
	}
	a.images = images
	a.history = session.NewHistory(turn.ChatSystemPrompt)
	return nil
}

// initPipeline builds the notification controller, endpoint detector, and
// turn orchestrator.
func (a *App) initPipeline() error {
	notifier, err := notify.New(a.output, a.cfg.Sounds.Dir)
	if err != nil {
		return fmt.Errorf("app: init notifications: %w", err)
	}
	a.notifier = notifier
	a.closers = append(a.closers, func() error {
		notifier.Stop()
		return nil
	})

	format := audio.Format{
		SampleRate: a.cfg.Audio.SampleRate,
		Channels:   a.cfg.Audio.Channels,
	}

	detector, err := endpoint.New(a.providers.Recognizer, format,
		endpoint.WithMinDuration(a.cfg.Endpointing.MinDuration.Std()),
		endpoint.WithSilenceTimeout(a.cfg.Endpointing.SilenceTimeout.Std()),
	)
	if err != nil {
		return fmt.Errorf("app: init endpoint detector: %w", err)
	}

	orch, err := turn.New(turn.Deps{
		Capture:     a.capture,
		Detector:    detector,
		Notify:      notifier,
		Transcriber: a.providers.STT,
		LLM:         a.providers.LLM,
		TTS:         a.providers.TTS,
		Images:      a.images,
		History:     a.history,
	}, turn.Config{
		UtterancePath: a.cfg.Storage.UtterancePath,
		CaptureFormat: format,
		BlockSize:     a.cfg.Audio.BlockSize,
		RemoteTimeout: a.cfg.Interaction.RemoteTimeout.Std(),
		MaxTokens:     a.cfg.Interaction.MaxTokens,
	}, turn.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("app: init orchestrator: %w", err)
	}
	a.orch = orch
	return nil
}

// initHTTP builds the route table and the http.Server.
func (a *App) initHTTP() {
	checks := health.New(
		health.SoundDir(a.cfg.Sounds.Dir),
		health.WritableDir("recording", a.cfg.Storage.UtterancePath),
		health.WritableDir("images", a.cfg.Storage.ImagePath),
		health.Recognizer(a.providers.Recognizer, a.cfg.Audio.SampleRate),
	)

	// server.New only fails on nil dependencies, all set here.
	srv, _ := server.New(a.orch, a.images, a.notifier,
		server.WithMetrics(a.metrics),
		server.WithHealth(checks),
	)

	a.httpSrv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Orchestrator exposes the turn orchestrator, mainly for tests.
func (a *App) Orchestrator() *turn.Orchestrator { return a.orch }

// Handler exposes the HTTP route table, mainly for tests.
func (a *App) Handler() http.Handler { return a.httpSrv.Handler }

// Run plays the boot sound and serves HTTP until ctx is cancelled or the
// listener fails. On cancellation it returns ctx.Err().
func (a *App) Run(ctx context.Context) error {
	// The device expects an audible confirmation that the assistant is up.
	a.notifier.PlayOnce(soundStart)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("app running", "listen_addr", a.cfg.Server.ListenAddr)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Shutdown stops the HTTP server and tears down all subsystems in order. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.httpSrv.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
