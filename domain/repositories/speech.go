package repositories

import "context"

// SpeechRecognizer abstracts the remote ASR backend.
type SpeechRecognizer interface {
	// Recognize converts raw PCM audio (16 kHz, mono, 16-bit little
	// endian) into text. An empty string without error means the
	// recognizer heard nothing usable.
	Recognize(ctx context.Context, pcm []byte) (string, error)
}

// SpeechSynthesizer abstracts the remote TTS backend.
type SpeechSynthesizer interface {
	// Synthesize converts a single line of text into raw PCM audio.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
