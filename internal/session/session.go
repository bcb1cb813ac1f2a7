package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the utterance pipeline position for one session.
type State string

const (
	StateIdle         State = "idle"
	StateBuffering    State = "buffering"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StateDelivering   State = "delivering"
	StateError        State = "error"
)

// Session is the server-side state for one live client connection. State and
// the conversation binding are touched from both the connection handler and
// the per-utterance worker, so they sit behind a mutex; everything else is
// owned by the single goroutine driving the session.
type Session struct {
	ID             string
	LastActivityAt time.Time

	mu             sync.Mutex
	state          State
	conversationID int64
}

// New creates an idle session with a fresh identifier.
func New() *Session {
	return &Session{
		ID:             uuid.NewString(),
		LastActivityAt: time.Now().UTC(),
		state:          StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Conversation returns the bound conversation id, 0 when unbound.
func (s *Session) Conversation() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *Session) BindConversation(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = id
}

// BeginUtterance transitions Idle to Buffering. It returns false when the
// session is already driving an utterance, which the caller reports as busy.
func (s *Session) BeginUtterance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return false
	}
	s.state = StateBuffering
	return true
}

func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivityAt = time.Now().UTC()
}
