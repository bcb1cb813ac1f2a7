package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType identifies websocket control message variants.
type MessageType string

const (
	// Inbound.
	TypeSelectConversation MessageType = "select_conversation"
	TypeDebug              MessageType = "debug"

	// Outbound.
	TypeConnectionEstablished MessageType = "connection_established"
	TypeConversationSelected  MessageType = "conversation_selected"
	TypeNewConversation       MessageType = "new_conversation"
	TypeTranscription         MessageType = "transcription"
	TypeAIResponse            MessageType = "ai_response"
	TypeStatus                MessageType = "status"
	TypeError                 MessageType = "error"
)

// Debug actions execute a single pipeline sub-step in isolation.
const (
	DebugTranscribe = "transcribe"
	DebugGenerate   = "generate"
	DebugSynthesize = "synthesize"
)

// MinAudioFrameBytes is the keep-alive noise threshold: binary frames at or
// below this size carry no speech and are discarded without a reply.
const MinAudioFrameBytes = 50

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// AudioFrame is one inbound binary frame, treated as a complete utterance.
type AudioFrame struct {
	PCM []byte
}

// OutboundAudio is one outbound binary frame carrying synthesized speech.
type OutboundAudio struct {
	Audio []byte
}

// IsKeepAliveFrame reports whether a binary frame is sub-protocol noise.
func IsKeepAliveFrame(frame []byte) bool {
	return len(frame) <= MinAudioFrameBytes
}

type SelectConversation struct {
	Type           MessageType `json:"type"`
	ConversationID int64       `json:"conversation_id"`
}

type Debug struct {
	Type        MessageType `json:"type"`
	Action      string      `json:"action"`
	AudioBase64 string      `json:"audio,omitempty"`
	Text        string      `json:"text,omitempty"`
}

type ConnectionEstablished struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type ConversationSelected struct {
	Type           MessageType `json:"type"`
	ConversationID int64       `json:"conversation_id"`
}

// ConversationInfo mirrors the persisted conversation record for announcements.
type ConversationInfo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewConversation struct {
	Type         MessageType      `json:"type"`
	Conversation ConversationInfo `json:"conversation"`
}

type Transcription struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type AIResponse struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type Status struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
}

type ErrorMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

// ParseClientMessage decodes an inbound text frame into its typed variant.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeSelectConversation:
		var msg SelectConversation
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.ConversationID <= 0 {
			return nil, errors.New("invalid select_conversation")
		}
		return msg, nil
	case TypeDebug:
		var msg Debug
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case DebugTranscribe:
			if msg.AudioBase64 == "" {
				return nil, errors.New("debug transcribe requires audio")
			}
		case DebugGenerate, DebugSynthesize:
			if msg.Text == "" {
				return nil, fmt.Errorf("debug %s requires text", msg.Action)
			}
		default:
			return nil, fmt.Errorf("unknown debug action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
