package store

import (
	"context"
	"errors"
	"time"
)

// DefaultTitle is used until summarization produces a real title, and as the
// fallback when summarization fails.
const DefaultTitle = "New Conversation"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrNotFound = errors.New("conversation not found")

// Conversation is one persisted voice conversation.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn inside a conversation. Messages are strictly
// time-ordered within their conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists conversations and their messages. The pipeline treats every
// operation as atomic; per-conversation ordering is guaranteed because each
// session serializes its own utterance processing.
type Store interface {
	CreateConversation(ctx context.Context, title string) (Conversation, error)
	GetConversation(ctx context.Context, id int64) (Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	AppendMessage(ctx context.Context, conversationID int64, role, content string) (Message, error)
	// RecentMessages returns up to limit newest messages in chronological order.
	RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error)
	// FirstMessages returns up to limit oldest messages in chronological order.
	FirstMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error)
	CountMessages(ctx context.Context, conversationID int64) (int, error)
	UpdateSummary(ctx context.Context, conversationID int64, title, summary string) error
	Touch(ctx context.Context, conversationID int64) error
	// DeleteConversation removes the conversation and all its messages.
	DeleteConversation(ctx context.Context, conversationID int64) error
	Close() error
}
