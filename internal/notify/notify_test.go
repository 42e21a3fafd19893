package notify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/argusworks/argus/pkg/audio"
	audiomock "github.com/argusworks/argus/pkg/audio/mock"
	"github.com/argusworks/argus/pkg/audio/wav"
	"github.com/argusworks/argus/pkg/provider/tts"
)

// writeSoundAsset writes System_<id>.wav with the given PCM into dir.
func writeSoundAsset(t *testing.T, dir, id string, pcm []byte) {
	t.Helper()
	w, err := wav.Create(filepath.Join(dir, "System_"+id+".wav"), audio.Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	if err := w.Append(pcm); err != nil {
		t.Fatalf("append asset: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close asset: %v", err)
	}
}

func newTestController(t *testing.T, dev audio.OutputDevice, dir string) *Controller {
	t.Helper()
	c, err := New(dev, dir)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

// TestPlayOnce_PlaysAsset checks a one-shot cue is decoded, written, drained
// and the device released.
func TestPlayOnce_PlaysAsset(t *testing.T) {
	dir := t.TempDir()
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	writeSoundAsset(t, dir, "Ping", pcm)

	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, dir)

	c.PlayOnce("Ping")

	if len(dev.Sinks) != 1 {
		t.Fatalf("expected 1 sink, got %d", len(dev.Sinks))
	}
	s := dev.Sinks[0]
	if string(s.Written) != string(pcm) {
		t.Errorf("expected PCM %v written, got %v", pcm, s.Written)
	}
	if s.CallCountDrain != 1 {
		t.Errorf("expected 1 drain, got %d", s.CallCountDrain)
	}
	if !s.Closed() {
		t.Error("expected sink released after playback")
	}
	if dev.Held() {
		t.Error("expected device free after playback")
	}
}

// TestPlayOnce_MissingAssetSwallowed checks a missing asset does not panic
// or touch the device.
func TestPlayOnce_MissingAssetSwallowed(t *testing.T) {
	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, t.TempDir())

	c.PlayOnce("DoesNotExist")

	if dev.CallCountAcquire != 0 {
		t.Errorf("expected no device acquire for a missing asset, got %d", dev.CallCountAcquire)
	}
}

// TestLoop_StopJoins checks Stop ends the loop, releases the device, and is
// idempotent.
func TestLoop_StopJoins(t *testing.T) {
	dir := t.TempDir()
	writeSoundAsset(t, dir, "Thinking", []byte{1, 0, 2, 0})

	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, dir)

	c.StartLoop("Thinking")

	// Let at least one iteration play.
	deadline := time.Now().Add(2 * time.Second)
	for dev.Acquires() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	c.Stop()

	if dev.Held() {
		t.Error("expected device free after Stop")
	}
	if dev.CallCountAcquire == 0 {
		t.Error("expected the loop to have played at least once")
	}

	// Idempotent: further stops are no-ops.
	c.Stop()
	c.Stop()
}

// TestLoop_NoOverlapWithAnswer checks the central invariant: after Stop, the
// answer playback gets the device with no overlapping acquire.
func TestLoop_NoOverlapWithAnswer(t *testing.T) {
	dir := t.TempDir()
	writeSoundAsset(t, dir, "Thinking", []byte{1, 0, 2, 0})

	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, dir)

	c.StartLoop("Thinking")
	deadline := time.Now().Add(2 * time.Second)
	for dev.Acquires() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Stop()

	answer := &tts.Speech{Data: []byte{9, 0, 8, 0}, Encoding: tts.EncodingLinear16, SampleRate: 24000}
	if err := c.PlayAudio(answer); err != nil {
		t.Fatalf("answer playback: %v", err)
	}

	// The mock device fails any overlapping acquire, so reaching here with
	// all sinks closed proves exclusivity held throughout.
	for i, s := range dev.Sinks {
		if !s.Closed() {
			t.Errorf("sink %d left open", i)
		}
	}
}

// TestStartLoop_SecondStartStopsFirst checks stop-then-start on double start.
func TestStartLoop_SecondStartStopsFirst(t *testing.T) {
	dir := t.TempDir()
	writeSoundAsset(t, dir, "One", []byte{1, 0})
	writeSoundAsset(t, dir, "Two", []byte{2, 0})

	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, dir)

	c.StartLoop("One")
	c.StartLoop("Two")
	defer c.Stop()

	// If the first loop were still running, the mock device would reject
	// overlapping acquires and the second cue would never play. Wait until
	// a sink has received the second cue's PCM.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, s := range dev.SinkList() {
			if string(s.Bytes()) == string([]byte{2, 0}) {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("second loop never played")
}

// TestStartLoop_ConcurrentStartsLeaveOneLoop checks racing StartLoop calls
// never orphan a loop: after Stop, playback ceases entirely.
func TestStartLoop_ConcurrentStartsLeaveOneLoop(t *testing.T) {
	dir := t.TempDir()
	writeSoundAsset(t, dir, "Thinking", []byte{1, 0})

	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, dir)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.StartLoop("Thinking")
		}()
	}
	wg.Wait()

	c.Stop()

	if dev.Held() {
		t.Error("expected device free after Stop")
	}
	// A leaked loop would keep acquiring the device; the count must settle.
	settled := dev.Acquires()
	time.Sleep(50 * time.Millisecond)
	if got := dev.Acquires(); got != settled {
		t.Errorf("acquires kept growing after Stop: %d -> %d", settled, got)
	}
}

// TestPlayAudio_RawPCM checks headerless LINEAR16 playback uses the clip's
// sample rate.
func TestPlayAudio_RawPCM(t *testing.T) {
	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, t.TempDir())

	speech := &tts.Speech{Data: []byte{1, 0, 2, 0}, Encoding: tts.EncodingLinear16, SampleRate: 24000}
	if err := c.PlayAudio(speech); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dev.RecordedFormats) != 1 {
		t.Fatalf("expected 1 acquire, got %d", len(dev.RecordedFormats))
	}
	if got := dev.RecordedFormats[0]; got.SampleRate != 24000 || got.Channels != 1 {
		t.Errorf("unexpected playback format %+v", got)
	}
}

// TestPlayAudio_WAVContainer checks RIFF-wrapped LINEAR16 is decoded via the
// WAV path, using the header's format.
func TestPlayAudio_WAVContainer(t *testing.T) {
	dir := t.TempDir()
	pcm := []byte{5, 0, 6, 0}
	writeSoundAsset(t, dir, "Clip", pcm)
	data, err := os.ReadFile(filepath.Join(dir, "System_Clip.wav"))
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}

	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, dir)

	speech := &tts.Speech{Data: data, Encoding: tts.EncodingLinear16}
	if err := c.PlayAudio(speech); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dev.Sinks[0].Written; string(got) != string(pcm) {
		t.Errorf("expected %v written, got %v", pcm, got)
	}
	if got := dev.RecordedFormats[0]; got.SampleRate != 16000 || got.Channels != 1 {
		t.Errorf("unexpected playback format %+v", got)
	}
}

// TestPlayAudio_EmptySpeech checks empty clips are rejected.
func TestPlayAudio_EmptySpeech(t *testing.T) {
	dev := &audiomock.OutputDevice{}
	c := newTestController(t, dev, t.TempDir())

	if err := c.PlayAudio(nil); err == nil {
		t.Error("expected error for nil speech")
	}
	if err := c.PlayAudio(&tts.Speech{Encoding: tts.EncodingMP3}); err == nil {
		t.Error("expected error for empty speech data")
	}
}

// TestPlayAudio_DeviceError checks acquire failures surface as errors.
func TestPlayAudio_DeviceError(t *testing.T) {
	dev := &audiomock.OutputDevice{AcquireError: audio.ErrDeviceUnavailable}
	c := newTestController(t, dev, t.TempDir())

	speech := &tts.Speech{Data: []byte{1, 0}, Encoding: tts.EncodingLinear16, SampleRate: 16000}
	if err := c.PlayAudio(speech); err == nil {
		t.Fatal("expected error when the device cannot be acquired")
	}
}
