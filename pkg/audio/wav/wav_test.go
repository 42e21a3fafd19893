package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/argusworks/argus/pkg/audio"
)

var testFormat = audio.Format{SampleRate: 16000, Channels: 1}

func pcmBlock(n int, value int16) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	return buf
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utterance.wav")

	w, err := Create(path, testFormat)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	blocks := [][]byte{pcmBlock(100, 1), pcmBlock(100, 2), pcmBlock(50, 3)}
	for i, b := range blocks {
		if err := w.Append(b); err != nil {
			t.Fatalf("Append(block %d) error = %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	pcm, f, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f != testFormat {
		t.Errorf("format = %+v, want %+v", f, testFormat)
	}
	if want := 250 * 2; len(pcm) != want {
		t.Errorf("payload length = %d, want %d", len(pcm), want)
	}
	// Each block must appear in append order.
	if got := int16(binary.LittleEndian.Uint16(pcm[0:])); got != 1 {
		t.Errorf("first sample = %d, want 1", got)
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[200*2:])); got != 2 {
		t.Errorf("sample after first block = %d, want 2", got)
	}
}

func TestWriter_HeaderWrittenEagerly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.wav")

	w, err := Create(path, testFormat)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Append(pcmBlock(80, 7)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	// Simulate a crash: read the file without closing the writer. The header
	// must already be present and parseable.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if _, _, err := Decode(data); err != nil {
		t.Errorf("Decode(partial file) error = %v, want valid header", err)
	}
	w.Close()
}

func TestWriter_OverwritesPreviousRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcribe_audio.wav")

	for _, samples := range []int{300, 20} {
		w, err := Create(path, testFormat)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := w.Append(pcmBlock(samples, 1)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	data, _ := os.ReadFile(path)
	pcm, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if want := 20 * 2; len(pcm) != want {
		t.Errorf("payload after overwrite = %d bytes, want %d", len(pcm), want)
	}
}

func TestWriter_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.wav")
	w, err := Create(path, testFormat)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if err := w.Append(pcmBlock(1, 0)); err == nil {
		t.Error("Append() after Close succeeded, want error")
	}
}

func TestWriter_EmptyRecordingIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	w, err := Create(path, testFormat)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	pcm, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(empty recording) error = %v", err)
	}
	if len(pcm) != 0 {
		t.Errorf("payload = %d bytes, want 0", len(pcm))
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"not riff", append([]byte("JUNKxxxxWAVE"), make([]byte, 64)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.data); err == nil {
				t.Error("Decode() = nil error, want failure")
			}
		})
	}
}

func TestWriter_OddPayloadRejected(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "odd.wav"), testFormat)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer w.Close()
	if err := w.Append([]byte{0x01}); err == nil {
		t.Error("Append(odd length) = nil error, want failure")
	}
}
