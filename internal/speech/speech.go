// Package speech defines the transcription and synthesis gateways.
package speech

import "context"

// Transcriber converts recorded audio into text.
type Transcriber interface {
	// Transcribe returns the recognized text for the given audio bytes.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts text into encoded audio.
type Synthesizer interface {
	// Speak returns encoded audio for the given text. Callers treat
	// synthesis as best-effort: on error they degrade to text-only.
	Speak(ctx context.Context, text string) ([]byte, error)
}
