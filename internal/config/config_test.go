package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.PingInterval != 30*time.Second {
		t.Fatalf("PingInterval = %v, want %v", cfg.PingInterval, 30*time.Second)
	}
	if cfg.TargetSampleRate != 16000 {
		t.Fatalf("TargetSampleRate = %d, want 16000", cfg.TargetSampleRate)
	}
	if cfg.ContextMessageLimit != 10 {
		t.Fatalf("ContextMessageLimit = %d, want 10", cfg.ContextMessageLimit)
	}
	if cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin should default to false")
	}
	if cfg.InputSampleRate != cfg.TargetSampleRate {
		t.Fatalf("InputSampleRate = %d, want target rate %d", cfg.InputSampleRate, cfg.TargetSampleRate)
	}
}

func TestLoadInputSampleRateOverride(t *testing.T) {
	t.Setenv("AUDIO_INPUT_SAMPLE_RATE", "48000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InputSampleRate != 48000 {
		t.Fatalf("InputSampleRate = %d, want 48000", cfg.InputSampleRate)
	}
	if cfg.TargetSampleRate != 16000 {
		t.Fatalf("TargetSampleRate = %d, want 16000", cfg.TargetSampleRate)
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("APP_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:5173")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("AllowedOrigins[1] = %q", cfg.AllowedOrigins[1])
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("APP_PING_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should fail on unparseable APP_PING_INTERVAL")
	}
}

func TestLoadRejectsShortPingInterval(t *testing.T) {
	t.Setenv("APP_PING_INTERVAL", "1s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject ping interval below 5s")
	}
}

func TestLLMConfigured(t *testing.T) {
	cfg := Config{LLMModel: "gpt-4o-mini", LLMBaseURL: "http://localhost:11434/v1"}
	if !cfg.LLMConfigured() {
		t.Fatalf("LLMConfigured() = false, want true")
	}
	cfg.LLMModel = ""
	if cfg.LLMConfigured() {
		t.Fatalf("LLMConfigured() = true with no model, want false")
	}
}

func TestTTSConfigured(t *testing.T) {
	cfg := Config{ElevenLabsAPIKey: "k", ElevenLabsVoiceID: "v"}
	if !cfg.TTSConfigured() {
		t.Fatalf("TTSConfigured() = false, want true")
	}
	cfg.ElevenLabsVoiceID = ""
	if cfg.TTSConfigured() {
		t.Fatalf("TTSConfigured() = true with no voice, want false")
	}
}
