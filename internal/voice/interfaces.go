package voice

import "context"

// ChatMessage is one turn handed to the language model.
type ChatMessage struct {
	Role    string
	Content string
}

// Transcriber converts one complete utterance of PCM16LE mono audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// Generator produces an assistant reply from an ordered message list
// (system instruction first, then prior context, then the new turn).
type Generator interface {
	Generate(ctx context.Context, messages []ChatMessage) (string, error)
}

// Synthesizer renders text as speech. Synthesis is optional: a synthesizer
// reporting Enabled() == false is skipped by the pipeline, never an error.
type Synthesizer interface {
	Enabled() bool
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
