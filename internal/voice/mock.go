package voice

import (
	"context"
	"fmt"
	"sync"
)

// MockTranscriber is a scriptable Transcriber for tests and local development
// without a speech-to-text backend.
type MockTranscriber struct {
	mu      sync.Mutex
	calls   int
	lastPCM int

	Text string
	Err  error
	// ErrOnce fails only the first call, then clears.
	ErrOnce error
}

func (m *MockTranscriber) Transcribe(_ context.Context, pcm []byte, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPCM = len(pcm)
	if m.ErrOnce != nil {
		err := m.ErrOnce
		m.ErrOnce = nil
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Text != "" {
		return m.Text, nil
	}
	return fmt.Sprintf("simulated transcript of %d bytes", len(pcm)), nil
}

func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPCMBytes reports the payload size of the most recent call.
func (m *MockTranscriber) LastPCMBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPCM
}

// MockGenerator replies with a canned response and records the prompts it saw.
type MockGenerator struct {
	mu      sync.Mutex
	prompts [][]ChatMessage

	Reply string
	Err   error
}

func (m *MockGenerator) Generate(_ context.Context, messages []ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, messages)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return "simulated assistant reply", nil
}

// Prompts returns a copy of every message list passed to Generate.
func (m *MockGenerator) Prompts() [][]ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ChatMessage, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// MockSynthesizer echoes the input text as audio bytes.
type MockSynthesizer struct {
	mu    sync.Mutex
	calls int

	Disabled bool
	Err      error
}

func (m *MockSynthesizer) Enabled() bool { return !m.Disabled }

func (m *MockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return []byte(text), nil
}

func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
