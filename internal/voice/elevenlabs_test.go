package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lcoppola/verba/internal/reliability"
)

func TestElevenLabsSynthesizeRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotReq elevenLabsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	syn := NewElevenLabsSynthesizer(ElevenLabsConfig{
		APIKey:  "key-123",
		VoiceID: "voice-abc",
		BaseURL: srv.URL,
	})
	if !syn.Enabled() {
		t.Fatalf("Enabled() = false with key and voice set")
	}

	audio, err := syn.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if gotPath != "/v1/text-to-speech/voice-abc" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "key-123" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotReq.Text != "hello there" {
		t.Fatalf("text = %q", gotReq.Text)
	}
	if gotReq.ModelID != "eleven_multilingual_v2" {
		t.Fatalf("model = %q", gotReq.ModelID)
	}
	if gotReq.VoiceSettings.Stability != 0.5 || gotReq.VoiceSettings.SimilarityBoost != 0.75 {
		t.Fatalf("voice settings = %+v", gotReq.VoiceSettings)
	}
}

func TestElevenLabsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	syn := NewElevenLabsSynthesizer(ElevenLabsConfig{APIKey: "k", VoiceID: "v", BaseURL: srv.URL})
	_, err := syn.Synthesize(context.Background(), "hi")
	var statusErr *reliability.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if statusErr.Provider != "elevenlabs" || statusErr.Code != http.StatusTooManyRequests {
		t.Fatalf("status error = %+v", statusErr)
	}
}

func TestElevenLabsDisabledWithoutCredentials(t *testing.T) {
	cases := []struct {
		name string
		cfg  ElevenLabsConfig
	}{
		{"no key", ElevenLabsConfig{VoiceID: "v"}},
		{"no voice", ElevenLabsConfig{APIKey: "k"}},
		{"neither", ElevenLabsConfig{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			syn := NewElevenLabsSynthesizer(tc.cfg)
			if syn.Enabled() {
				t.Fatalf("Enabled() = true, want false")
			}
			if _, err := syn.Synthesize(context.Background(), "hi"); err == nil {
				t.Fatalf("expected error when disabled")
			}
		})
	}
}

func TestElevenLabsSettingsClamped(t *testing.T) {
	syn := NewElevenLabsSynthesizer(ElevenLabsConfig{
		APIKey:          "k",
		VoiceID:         "v",
		Stability:       1.8,
		SimilarityBoost: 2.5,
	})
	if syn.stability != 1 || syn.similarityBoost != 1 {
		t.Fatalf("settings = %v, %v, want clamped to 1", syn.stability, syn.similarityBoost)
	}
}
