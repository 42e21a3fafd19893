package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestStageHistograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"argus.capture.duration", m.CaptureDuration},
		{"argus.transcribe.duration", m.TranscribeDuration},
		{"argus.completion.duration", m.CompletionDuration},
		{"argus.synthesis.duration", m.SynthesisDuration},
		{"argus.playback.duration", m.PlaybackDuration},
	}

	for _, tc := range histograms {
		m.RecordStage(ctx, tc.h, 123*time.Millisecond)
		m.RecordStage(ctx, tc.h, 456*time.Millisecond)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestTurnsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "Chatbot", "ok")
	m.RecordTurn(ctx, "Chatbot", "ok")
	m.RecordTurn(ctx, "Analyze_Text", "error")

	rm := collect(t, reader)
	met := findMetric(rm, "argus.turns")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	// Find the data point for the Chatbot/ok combination.
	found := false
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "mode" && kv.Value.AsString() == "Chatbot" {
				found = true
				if dp.Value != 2 {
					t.Errorf("Chatbot turn count = %d, want 2", dp.Value)
				}
			}
		}
	}
	if !found {
		t.Error("no data point with mode=Chatbot")
	}
}

func TestNotificationPlaysCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordNotification(ctx, "Loading")
	m.RecordNotification(ctx, "Loading")
	m.RecordNotification(ctx, "Mic_Recording")

	rm := collect(t, reader)
	met := findMetric(rm, "argus.notification.plays")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total notification plays = %d, want 3", total)
	}
}

func TestProviderErrorsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderError(ctx, "openai", "completion")

	rm := collect(t, reader)
	met := findMetric(rm, "argus.provider.errors")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Error("expected a single error count of 1")
	}
}

func TestActiveTurnsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	done := m.TurnStarted(ctx)

	rm := collect(t, reader)
	met := findMetric(rm, "argus.active_turns")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("active turns = %d, want 1 while in flight", sum.DataPoints[0].Value)
	}

	done()
	rm = collect(t, reader)
	met = findMetric(rm, "argus.active_turns")
	sum = met.Data.(metricdata.Sum[int64])
	if sum.DataPoints[0].Value != 0 {
		t.Errorf("active turns = %d, want 0 after completion", sum.DataPoints[0].Value)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// All convenience methods must be no-ops on a nil receiver.
	m.RecordStage(ctx, nil, time.Second)
	m.RecordTurn(ctx, "Chatbot", "ok")
	m.RecordNotification(ctx, "Loading")
	m.RecordProviderError(ctx, "openai", "completion")
	m.TurnStarted(ctx)()
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different instances")
	}
}
