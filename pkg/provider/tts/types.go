package tts

// AudioEncoding names the container format of synthesised audio.
type AudioEncoding string

const (
	// EncodingMP3 is MPEG-1 Layer III audio.
	EncodingMP3 AudioEncoding = "MP3"

	// EncodingLinear16 is uncompressed 16-bit little-endian PCM.
	EncodingLinear16 AudioEncoding = "LINEAR16"
)

// SpeechRequest describes one synthesis call.
type SpeechRequest struct {
	// Text is the plain text to speak. Must not be empty.
	Text string

	// LanguageTag is a BCP-47 tag such as "de-DE" or "en-US". Empty means
	// the provider's configured default.
	LanguageTag string

	// VoiceID selects a provider-specific voice (e.g., "de-DE-Wavenet-B").
	// Empty means the provider's configured default.
	VoiceID string

	// Encoding requests an output format. Empty means the provider's
	// default encoding.
	Encoding AudioEncoding
}

// Speech is one synthesised audio clip.
type Speech struct {
	// Data holds the encoded audio bytes.
	Data []byte

	// Encoding is the format of Data.
	Encoding AudioEncoding

	// SampleRate is the sample rate of the audio in Hz. For MP3 it is the
	// rate the provider reports, informational only; the decoder reads the
	// real rate from the frames.
	SampleRate int
}
