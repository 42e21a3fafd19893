// Package observe provides application-wide observability primitives for
// Argus: OpenTelemetry metrics, distributed tracing, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Argus metrics.
const meterName = "github.com/argusworks/argus"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per interaction stage ---

	// CaptureDuration tracks how long one microphone utterance ran, from
	// stream open to endpoint.
	CaptureDuration metric.Float64Histogram

	// TranscribeDuration tracks utterance transcription latency.
	TranscribeDuration metric.Float64Histogram

	// CompletionDuration tracks LLM completion latency.
	CompletionDuration metric.Float64Histogram

	// SynthesisDuration tracks text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks answer playback time, write to drain.
	PlaybackDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed interactions. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("outcome", ...)
	Turns metric.Int64Counter

	// NotificationPlays counts notification cue playbacks. Use with attribute:
	//   attribute.String("sound", ...)
	NotificationPlays metric.Int64Counter

	// ProviderErrors counts remote provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveTurns tracks interactions currently in flight (0 or 1 under the
	// single-flight rule; anything else is a bug surfaced by this gauge).
	ActiveTurns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// a pipeline whose stages range from sub-second playback to multi-second
// utterance capture and remote calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("argus.capture.duration",
		metric.WithDescription("Length of one recorded microphone utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("argus.transcribe.duration",
		metric.WithDescription("Latency of utterance transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CompletionDuration, err = m.Float64Histogram("argus.completion.duration",
		metric.WithDescription("Latency of LLM completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("argus.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("argus.playback.duration",
		metric.WithDescription("Answer playback time, write to drain."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Turns, err = m.Int64Counter("argus.turns",
		metric.WithDescription("Completed interactions by mode and outcome."),
	); err != nil {
		return nil, err
	}
	if met.NotificationPlays, err = m.Int64Counter("argus.notification.plays",
		metric.WithDescription("Notification cue playbacks by sound id."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("argus.provider.errors",
		metric.WithDescription("Remote provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTurns, err = m.Int64UpDownCounter("argus.active_turns",
		metric.WithDescription("Interactions currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("argus.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records a stage latency on the matching histogram. Safe on a
// nil receiver, so metrics stay optional in tests.
func (m *Metrics) RecordStage(ctx context.Context, h metric.Float64Histogram, d time.Duration) {
	if m == nil || h == nil {
		return
	}
	h.Record(ctx, d.Seconds())
}

// RecordCapture records how long microphone capture ran for one utterance.
func (m *Metrics) RecordCapture(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordStage(ctx, m.CaptureDuration, d)
}

// RecordTranscribe records the latency of one transcription request.
func (m *Metrics) RecordTranscribe(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordStage(ctx, m.TranscribeDuration, d)
}

// RecordCompletion records the latency of one model completion.
func (m *Metrics) RecordCompletion(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordStage(ctx, m.CompletionDuration, d)
}

// RecordSynthesis records the latency of one speech synthesis request.
func (m *Metrics) RecordSynthesis(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordStage(ctx, m.SynthesisDuration, d)
}

// RecordPlayback records how long answer playback held the output device.
func (m *Metrics) RecordPlayback(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordStage(ctx, m.PlaybackDuration, d)
}

// RecordHTTPRequest records one served HTTP request. Safe on a nil receiver.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, d time.Duration) {
	if m == nil || m.HTTPRequestDuration == nil {
		return
	}
	m.HTTPRequestDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordTurn records a completed interaction. Safe on a nil receiver.
func (m *Metrics) RecordTurn(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	m.Turns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordNotification records one cue playback. Safe on a nil receiver.
func (m *Metrics) RecordNotification(ctx context.Context, sound string) {
	if m == nil {
		return
	}
	m.NotificationPlays.Add(ctx, 1,
		metric.WithAttributes(attribute.String("sound", sound)),
	)
}

// RecordProviderError records a remote provider error. Safe on a nil receiver.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// TurnStarted increments the in-flight gauge and returns a function that
// decrements it. Safe on a nil receiver.
func (m *Metrics) TurnStarted(ctx context.Context) func() {
	if m == nil {
		return func() {}
	}
	m.ActiveTurns.Add(ctx, 1)
	return func() { m.ActiveTurns.Add(ctx, -1) }
}
