package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIGeneratorAgainstCompatibleEndpoint(t *testing.T) {
	var gotModel string
	var gotMessages []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		var req struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotModel = req.Model
		gotMessages = req.Messages

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "sure thing"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(GeneratorConfig{
		BaseURL:     srv.URL + "/v1",
		APIKey:      "test-key",
		Model:       "local-model",
		Temperature: 0.7,
		MaxTokens:   256,
	})

	reply, err := gen.Generate(context.Background(), []ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "sure thing" {
		t.Fatalf("reply = %q, want %q", reply, "sure thing")
	}
	if gotModel != "local-model" {
		t.Fatalf("model = %q, want local-model", gotModel)
	}
	if len(gotMessages) != 2 || gotMessages[0]["role"] != "system" {
		t.Fatalf("messages = %v", gotMessages)
	}
}

func TestOpenAIGeneratorRequiresModel(t *testing.T) {
	gen := NewOpenAIGenerator(GeneratorConfig{APIKey: "k"})
	if _, err := gen.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatalf("expected error without a model id")
	}
}

func TestOpenAIGeneratorRejectsEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cmpl-2", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(GeneratorConfig{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "m"})
	if _, err := gen.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
