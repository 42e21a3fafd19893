// Package turn orchestrates one full assistant interaction: notification
// cues, microphone capture, transcription, model completion, speech
// synthesis, and answer playback.
//
// Exactly one interaction runs at a time. A weight-1 semaphore guards entry;
// concurrent requests fail fast with ErrBusy instead of queueing, because
// the device-side client retries and a queued stale request would speak over
// a newer one. Within an interaction at most two goroutines are live: the
// flow itself and the looping notification player, and the loop is stopped
// on every exit path before the answer plays.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/argusworks/argus/internal/endpoint"
	"github.com/argusworks/argus/internal/imagestore"
	"github.com/argusworks/argus/internal/notify"
	"github.com/argusworks/argus/internal/observe"
	"github.com/argusworks/argus/internal/session"
	"github.com/argusworks/argus/pkg/audio"
	"github.com/argusworks/argus/pkg/audio/wav"
	"github.com/argusworks/argus/pkg/provider/llm"
	"github.com/argusworks/argus/pkg/provider/transcribe"
	"github.com/argusworks/argus/pkg/provider/tts"
)

// Interaction modes, matching the device client's status strings.
const (
	ModeAnalyzeText   = "Analyze_Text"
	ModeAnalyzeObject = "Analyze_Object"
	ModeChatbot       = "Chatbot"
)

// Notification sound ids.
const (
	soundMicRecording = "Mic_Recording"
	soundLoading      = "Loading"
)

// Built-in prompts. The assistant serves a visually impaired user in German;
// the texts are part of the product behaviour, not placeholders.
const (
	visionTextSystem   = "Du bist mein Assistent und analysierst und liest mir den im Fokus liegenden Objekt auf dem Bild vor, weil ich sehr schlecht sehen kann!"
	visionTextQuestion = "Lese mir den Text genau so vor wie du es siehst!"
	visionObjectSystem = "Du bist mein Assistent und sagst mir was du im Bild siehst, weil ich sehr schlecht sehen kann!"

	// ChatSystemPrompt seeds the conversation history for chat mode.
	ChatSystemPrompt = "Du bist mein Assistent und gibst mir Antworten zu allem was ich will! Du antwortest immer in klaren und nicht so langen Texten, sodass ich die generierte Antwort in Text to Speech umwandeln kann!"
)

// DefaultRemoteTimeout bounds each individual remote provider call.
const DefaultRemoteTimeout = 60 * time.Second

// defaultMaxTokens caps completion length; answers are spoken, so short.
const defaultMaxTokens = 2000

// Detector runs one utterance-capture cycle. *endpoint.Detector satisfies it.
type Detector interface {
	Detect(ctx context.Context, frames <-chan audio.Frame, rec endpoint.Recorder) (endpoint.Utterance, error)
}

// Notifier is the slice of the notification controller the orchestrator
// needs. *notify.Controller satisfies it.
type Notifier interface {
	PlayOnce(id string)
	StartLoop(id string)
	Stop()
	PlayAudio(speech *tts.Speech) error
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Capture     audio.CaptureDevice
	Detector    Detector
	Notify      Notifier
	Transcriber transcribe.Provider
	LLM         llm.Provider
	TTS         tts.Provider
	Images      *imagestore.Store
	History     *session.History
}

// Config holds the orchestrator's tunables.
type Config struct {
	// UtterancePath is the fixed WAV path utterances are recorded to,
	// overwritten each turn.
	UtterancePath string

	// CaptureFormat is the microphone format (16 kHz mono in production).
	CaptureFormat audio.Format

	// BlockSize is the capture block size in frames per block.
	BlockSize int

	// RemoteTimeout bounds each remote provider call. Zero means
	// DefaultRemoteTimeout.
	RemoteTimeout time.Duration

	// MaxTokens caps completion length. Zero means the built-in default.
	MaxTokens int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics sink. Nil metrics record nothing.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator runs assistant interactions. Safe for concurrent use; all but
// one concurrent Run fail with ErrBusy.
type Orchestrator struct {
	deps    Deps
	cfg     Config
	sem     *semaphore.Weighted
	logger  *slog.Logger
	metrics *observe.Metrics
}

// New creates an Orchestrator.
func New(deps Deps, cfg Config, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Capture == nil, deps.Detector == nil, deps.Notify == nil,
		deps.Transcriber == nil, deps.LLM == nil, deps.TTS == nil,
		deps.Images == nil, deps.History == nil:
		return nil, fmt.Errorf("turn: all dependencies must be set")
	}
	if cfg.UtterancePath == "" {
		return nil, fmt.Errorf("turn: utterance path must not be empty")
	}
	if err := cfg.CaptureFormat.Validate(); err != nil {
		return nil, fmt.Errorf("turn: %w", err)
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultRemoteTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	o := &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes one interaction in the given mode and returns the spoken
// answer text. It returns ErrBusy when another interaction is in flight and
// ErrUnknownMode for unrecognised modes. Whatever happens, the notification
// loop is stopped before Run returns.
func (o *Orchestrator) Run(ctx context.Context, mode string) (answer string, err error) {
	if !o.sem.TryAcquire(1) {
		return "", ErrBusy
	}
	defer o.sem.Release(1)

	turnID := uuid.NewString()
	log := o.logger.With("turn_id", turnID, "mode", mode)
	done := o.metrics.TurnStarted(ctx)
	defer done()

	// The loop must be silent on every exit path, success or failure.
	defer o.deps.Notify.Stop()

	start := time.Now()
	switch mode {
	case ModeAnalyzeText, ModeAnalyzeObject:
		answer, err = o.visionTurn(ctx, log, mode)
	case ModeChatbot:
		answer, err = o.chatTurn(ctx, log)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error("interaction failed", "error", err, "elapsed", time.Since(start))
	} else {
		log.Info("interaction completed", "elapsed", time.Since(start))
	}
	o.metrics.RecordTurn(ctx, mode, outcome)
	return answer, err
}

// visionTurn answers a question about the most recent camera image.
// Analyze_Text reads whatever text is in focus with a fixed built-in
// question; Analyze_Object records the user's spoken question first.
func (o *Orchestrator) visionTurn(ctx context.Context, log *slog.Logger, mode string) (string, error) {
	system := visionTextSystem
	question := visionTextQuestion

	if mode == ModeAnalyzeObject {
		system = visionObjectSystem
		var err error
		question, err = o.captureQuestion(ctx, log)
		if err != nil {
			return "", err
		}
	} else {
		o.deps.Notify.StartLoop(soundLoading)
		o.metrics.RecordNotification(ctx, soundLoading)
	}

	img, err := o.deps.Images.Read()
	if err != nil {
		return "", fmt.Errorf("turn: load image: %w", err)
	}

	answer, err := o.complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages: []llm.Message{
			{Role: session.RoleUser, Content: question, ImageData: img},
		},
		MaxTokens: o.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	log.Debug("vision answer generated", "question", question, "answer_len", len(answer))

	if err := o.speak(ctx, answer); err != nil {
		return "", err
	}
	return answer, nil
}

// chatTurn records a spoken message, extends the running conversation, and
// speaks the model's reply. The user turn stays in the history even when the
// completion fails, so a retry carries the full context.
func (o *Orchestrator) chatTurn(ctx context.Context, log *slog.Logger) (string, error) {
	text, err := o.captureQuestion(ctx, log)
	if err != nil {
		return "", err
	}
	o.deps.History.AppendUser(text)

	turns := o.deps.History.Snapshot()
	req := llm.CompletionRequest{MaxTokens: o.cfg.MaxTokens}
	for i, t := range turns {
		if i == 0 && t.Role == session.RoleSystem {
			req.SystemPrompt = t.Content
			continue
		}
		req.Messages = append(req.Messages, llm.Message{Role: t.Role, Content: t.Content})
	}

	answer, err := o.complete(ctx, req)
	if err != nil {
		return "", err
	}
	o.deps.History.AppendAssistant(answer)
	log.Debug("chat answer generated", "history_len", o.deps.History.Len())

	if err := o.speak(ctx, answer); err != nil {
		return "", err
	}
	return answer, nil
}

// captureQuestion runs the voice-capture sub-flow: recording cue, utterance
// capture into the WAV file, loading loop, transcription. The returned text
// may be empty; a silent recording is a valid (if unhelpful) question.
func (o *Orchestrator) captureQuestion(ctx context.Context, log *slog.Logger) (string, error) {
	stream, err := o.deps.Capture.Open(ctx, audio.StreamConfig{
		Format:    o.cfg.CaptureFormat,
		BlockSize: o.cfg.BlockSize,
	})
	if err != nil {
		return "", fmt.Errorf("turn: open capture: %w", err)
	}

	w, err := wav.Create(o.cfg.UtterancePath, o.cfg.CaptureFormat)
	if err != nil {
		stream.Close()
		return "", fmt.Errorf("turn: create recording: %w", err)
	}

	// The cue plays once the stream is live, so the user starts talking
	// while frames are already being captured.
	o.deps.Notify.PlayOnce(soundMicRecording)
	o.metrics.RecordNotification(ctx, soundMicRecording)

	captureStart := time.Now()
	utt, detectErr := o.deps.Detector.Detect(ctx, stream.Frames(), w)
	closeErr := stream.Close()
	if err := w.Close(); err != nil {
		log.Warn("closing recording failed", "error", err)
	}
	if detectErr != nil {
		return "", fmt.Errorf("turn: capture utterance: %w", detectErr)
	}
	if closeErr != nil {
		log.Warn("closing capture stream failed", "error", closeErr)
	}
	o.metrics.RecordCapture(ctx, time.Since(captureStart))
	log.Debug("utterance recorded", "duration", utt.Duration(), "voiced", utt.Voiced)

	// The user has stopped talking; let them hear that the assistant is
	// working while transcription and everything after it runs.
	o.deps.Notify.StartLoop(soundLoading)
	o.metrics.RecordNotification(ctx, soundLoading)

	tctx, cancel := context.WithTimeout(ctx, o.cfg.RemoteTimeout)
	defer cancel()
	transcribeStart := time.Now()
	text, err := o.deps.Transcriber.TranscribeFile(tctx, o.cfg.UtterancePath)
	if err != nil {
		o.metrics.RecordProviderError(ctx, "transcribe", "transcription")
		return "", &RemoteError{Op: "transcribe utterance", Err: err}
	}
	o.metrics.RecordTranscribe(ctx, time.Since(transcribeStart))
	log.Debug("utterance transcribed", "text_len", len(text))
	return text, nil
}

// complete runs one bounded LLM completion.
func (o *Orchestrator) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.RemoteTimeout)
	defer cancel()

	start := time.Now()
	answer, err := o.deps.LLM.Complete(cctx, req)
	if err != nil {
		o.metrics.RecordProviderError(ctx, "llm", "completion")
		return "", &RemoteError{Op: "completion", Err: err}
	}
	o.metrics.RecordCompletion(ctx, time.Since(start))
	return answer, nil
}

// speak synthesizes the answer, silences the notification loop, and plays
// the clip. Synthesis happens first so the loop keeps playing during the
// remote call and stops only right before the answer sounds.
func (o *Orchestrator) speak(ctx context.Context, answer string) error {
	sctx, cancel := context.WithTimeout(ctx, o.cfg.RemoteTimeout)
	defer cancel()

	synthStart := time.Now()
	speech, err := o.deps.TTS.Synthesize(sctx, tts.SpeechRequest{Text: answer})
	if err != nil {
		o.metrics.RecordProviderError(ctx, "tts", "synthesis")
		return &RemoteError{Op: "synthesize answer", Err: err}
	}
	o.metrics.RecordSynthesis(ctx, time.Since(synthStart))

	o.deps.Notify.Stop()

	playStart := time.Now()
	if err := o.deps.Notify.PlayAudio(speech); err != nil {
		return fmt.Errorf("turn: play answer: %w", err)
	}
	o.metrics.RecordPlayback(ctx, time.Since(playStart))
	return nil
}

// Ensure the real notification controller satisfies Notifier.
var _ Notifier = (*notify.Controller)(nil)
