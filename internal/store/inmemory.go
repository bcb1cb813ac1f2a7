package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps conversations in process memory. It backs local
// development and tests when no DATABASE_URL is configured.
type InMemoryStore struct {
	mu            sync.Mutex
	nextID        int64
	conversations map[int64]Conversation
	messages      map[int64][]Message
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nextID:        1,
		conversations: make(map[int64]Conversation),
		messages:      make(map[int64][]Message),
	}
}

func (s *InMemoryStore) CreateConversation(_ context.Context, title string) (Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c := Conversation{
		ID:        s.nextID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.conversations[c.ID] = c
	return c, nil
}

func (s *InMemoryStore) GetConversation(_ context.Context, id int64) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemoryStore) ListConversations(_ context.Context) ([]Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	return out, nil
}

func (s *InMemoryStore) AppendMessage(_ context.Context, conversationID int64, role, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return Message{}, ErrNotFound
	}
	m := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], m)
	return m, nil
}

func (s *InMemoryStore) RecentMessages(_ context.Context, conversationID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *InMemoryStore) FirstMessages(_ context.Context, conversationID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *InMemoryStore) CountMessages(_ context.Context, conversationID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[conversationID]), nil
}

func (s *InMemoryStore) UpdateSummary(_ context.Context, conversationID int64, title, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	c.Title = title
	c.Summary = summary
	c.UpdatedAt = time.Now().UTC()
	s.conversations[conversationID] = c
	return nil
}

func (s *InMemoryStore) Touch(_ context.Context, conversationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	s.conversations[conversationID] = c
	return nil
}

func (s *InMemoryStore) DeleteConversation(_ context.Context, conversationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
