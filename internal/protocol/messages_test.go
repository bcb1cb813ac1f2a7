package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseClientMessageSelectConversation(t *testing.T) {
	raw := []byte(`{"type":"select_conversation","conversation_id":42}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	sel, ok := msg.(SelectConversation)
	if !ok {
		t.Fatalf("message type = %T, want SelectConversation", msg)
	}
	if sel.ConversationID != 42 {
		t.Fatalf("ConversationID = %d, want 42", sel.ConversationID)
	}
}

func TestParseClientMessageRejectsZeroConversation(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"select_conversation","conversation_id":0}`)); err == nil {
		t.Fatalf("ParseClientMessage() should reject conversation_id 0")
	}
}

func TestParseClientMessageDebug(t *testing.T) {
	raw := []byte(`{"type":"debug","action":"generate","text":"say hi"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	dbg, ok := msg.(Debug)
	if !ok {
		t.Fatalf("message type = %T, want Debug", msg)
	}
	if dbg.Action != DebugGenerate || dbg.Text != "say hi" {
		t.Fatalf("unexpected debug message: %+v", dbg)
	}
}

func TestParseClientMessageDebugValidation(t *testing.T) {
	cases := []string{
		`{"type":"debug","action":"transcribe"}`,
		`{"type":"debug","action":"synthesize"}`,
		`{"type":"debug","action":"explode","text":"x"}`,
	}
	for _, raw := range cases {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("ParseClientMessage(%s) should fail", raw)
		}
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("ParseClientMessage() should fail on malformed JSON")
	}
}

func TestIsKeepAliveFrame(t *testing.T) {
	if !IsKeepAliveFrame(bytes.Repeat([]byte{1}, MinAudioFrameBytes)) {
		t.Fatalf("frame of %d bytes should be keep-alive noise", MinAudioFrameBytes)
	}
	if IsKeepAliveFrame(bytes.Repeat([]byte{1}, MinAudioFrameBytes+1)) {
		t.Fatalf("frame of %d bytes should be a real utterance", MinAudioFrameBytes+1)
	}
}
