// Package wav implements a crash-safe incremental WAV writer and a matching
// decoder for 16-bit PCM audio.
//
// The writer is built for utterance recording: the RIFF header is written
// eagerly when the file is created and every appended block goes straight to
// the file, so a crash mid-utterance leaves a valid, playable partial file.
// Close patches the RIFF and data chunk sizes in place.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/argusworks/argus/pkg/audio"
)

// headerSize is the fixed size of the canonical 44-byte PCM WAV header.
const headerSize = 44

// bitsPerSample is fixed: the pipeline transports 16-bit signed PCM only.
const bitsPerSample = 16

// header is the canonical RIFF/WAVE header for uncompressed PCM.
type header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes
}

func newHeader(f audio.Format, dataBytes uint32) header {
	ch := uint16(f.Channels)
	return header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataBytes,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   ch,
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.SampleRate) * uint32(ch) * bitsPerSample / 8,
		BlockAlign:    ch * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataBytes,
	}
}

// Writer writes a PCM WAV file incrementally. It is not safe for concurrent
// use; the endpoint detector is its single writer.
type Writer struct {
	f         *os.File
	format    audio.Format
	dataBytes uint32
	closed    bool
}

// Create opens path for writing (truncating any previous recording at the
// same path) and eagerly writes the WAV header with zero-length size fields.
func Create(path string, f audio.Format) (*Writer, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: create %q: %w", path, err)
	}
	if err := binary.Write(file, binary.LittleEndian, newHeader(f, 0)); err != nil {
		file.Close()
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	return &Writer{f: file, format: f}, nil
}

// Append writes a block of raw 16-bit PCM to the file immediately. Nothing is
// accumulated in memory beyond what the OS buffers.
func (w *Writer) Append(pcm []byte) error {
	if w.closed {
		return fmt.Errorf("wav: append after close")
	}
	if len(pcm)%2 != 0 {
		return fmt.Errorf("wav: odd PCM payload length %d", len(pcm))
	}
	n, err := w.f.Write(pcm)
	w.dataBytes += uint32(n)
	if err != nil {
		return fmt.Errorf("wav: append: %w", err)
	}
	return nil
}

// Duration returns the play length of the audio appended so far.
func (w *Writer) Duration() float64 {
	bps := w.format.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return float64(w.dataBytes) / float64(bps)
}

// Close patches the RIFF and data chunk sizes and closes the file. Safe to
// call more than once; subsequent calls return nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.f.Seek(0, 0); err != nil {
		w.f.Close()
		return fmt.Errorf("wav: seek for size patch: %w", err)
	}
	if err := binary.Write(w.f, binary.LittleEndian, newHeader(w.format, w.dataBytes)); err != nil {
		w.f.Close()
		return fmt.Errorf("wav: patch header: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("wav: close: %w", err)
	}
	return nil
}

// Decode parses a complete WAV file and returns its raw PCM payload and
// format. Only uncompressed 16-bit PCM is supported, the same constraint the
// writer enforces.
func Decode(data []byte) ([]byte, audio.Format, error) {
	if len(data) < headerSize {
		return nil, audio.Format{}, fmt.Errorf("wav: data too short: %d bytes", len(data))
	}

	var h header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, audio.Format{}, fmt.Errorf("wav: read header: %w", err)
	}
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return nil, audio.Format{}, fmt.Errorf("wav: not a RIFF/WAVE file")
	}
	if string(h.Subchunk1ID[:]) != "fmt " {
		return nil, audio.Format{}, fmt.Errorf("wav: missing fmt chunk")
	}
	if h.AudioFormat != 1 {
		return nil, audio.Format{}, fmt.Errorf("wav: unsupported audio format %d (PCM only)", h.AudioFormat)
	}
	if h.BitsPerSample != bitsPerSample {
		return nil, audio.Format{}, fmt.Errorf("wav: unsupported bit depth %d (16-bit only)", h.BitsPerSample)
	}
	if string(h.Subchunk2ID[:]) != "data" {
		return nil, audio.Format{}, fmt.Errorf("wav: missing data chunk")
	}

	payload := data[headerSize:]
	if int(h.Subchunk2Size) < len(payload) {
		payload = payload[:h.Subchunk2Size]
	}
	f := audio.Format{SampleRate: int(h.SampleRate), Channels: int(h.NumChannels)}
	return payload, f, nil
}
