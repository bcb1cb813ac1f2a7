package voice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lcoppola/verba/internal/reliability"
)

func TestHTTPTranscriberSendsWAVAndDecodesResult(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path = %q, want /transcribe", r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transcription": "hello world"}`))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	pcm := make([]byte, 320)
	text, err := tr.Transcribe(context.Background(), pcm, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q, want %q", text, "hello world")
	}
	if gotContentType != "audio/wav" {
		t.Fatalf("content type = %q, want audio/wav", gotContentType)
	}
	// The raw PCM goes out wrapped in a RIFF container.
	if len(gotBody) != 44+len(pcm) {
		t.Fatalf("body length = %d, want %d", len(gotBody), 44+len(pcm))
	}
	if string(gotBody[:4]) != "RIFF" || string(gotBody[8:12]) != "WAVE" {
		t.Fatalf("body is not a WAV container: %q", gotBody[:12])
	}
}

func TestHTTPTranscriberErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "model not loaded"}`))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	if _, err := tr.Transcribe(context.Background(), make([]byte, 320), 16000); err == nil {
		t.Fatalf("expected error from error field")
	}
}

func TestHTTPTranscriberStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	_, err := tr.Transcribe(context.Background(), make([]byte, 320), 16000)
	var statusErr *reliability.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", statusErr.Code)
	}
	if !reliability.IsRetryable(err) {
		t.Fatalf("503 should be retryable")
	}
}

func TestHTTPTranscriberUnconfigured(t *testing.T) {
	tr := NewHTTPTranscriber("")
	if _, err := tr.Transcribe(context.Background(), make([]byte, 320), 16000); err == nil {
		t.Fatalf("expected error without a backend URL")
	}
}

func TestHTTPTranscriberEmptyTranscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"transcription": ""}`))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	if _, err := tr.Transcribe(context.Background(), make([]byte, 320), 16000); err == nil {
		t.Fatalf("expected error for empty transcription")
	}
}
