package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	AllowedOrigins []string

	PingInterval time.Duration

	TranscriberURL string

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int

	ElevenLabsAPIKey   string
	ElevenLabsVoiceID  string
	TTSStability       float64
	TTSSimilarityBoost float64

	InputSampleRate  int
	TargetSampleRate int

	ContextMessageLimit int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "verba"),
		AllowAnyOrigin:      false,
		TranscriberURL:      stringsTrimSpace("TRANSCRIBER_URL"),
		LLMBaseURL:          stringsTrimSpace("LLM_BASE_URL"),
		LLMAPIKey:           stringsTrimSpace("LLM_API_KEY"),
		LLMModel:            stringsTrimSpace("LLM_MODEL"),
		LLMTemperature:      0.7,
		LLMMaxTokens:        512,
		ElevenLabsAPIKey:    stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID:   stringsTrimSpace("ELEVENLABS_VOICE_ID"),
		TTSStability:        0.5,
		TTSSimilarityBoost:  0.75,
		TargetSampleRate:    16000,
		ContextMessageLimit: 10,
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:     15 * time.Second,
		PingInterval:        30 * time.Second,
	}

	if raw := stringsTrimSpace("APP_ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PingInterval, err = durationFromEnv("APP_PING_INTERVAL", cfg.PingInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTemperature, err = floatFromEnv("LLM_TEMPERATURE", cfg.LLMTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSStability, err = floatFromEnv("TTS_STABILITY", cfg.TTSStability)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSSimilarityBoost, err = floatFromEnv("TTS_SIMILARITY_BOOST", cfg.TTSSimilarityBoost)
	if err != nil {
		return Config{}, err
	}
	cfg.TargetSampleRate, err = intFromEnv("AUDIO_TARGET_SAMPLE_RATE", cfg.TargetSampleRate)
	if err != nil {
		return Config{}, err
	}
	// Clients deliver frames already downsampled to the target rate; the
	// server resamples only when told the client captures at another rate.
	cfg.InputSampleRate, err = intFromEnv("AUDIO_INPUT_SAMPLE_RATE", cfg.TargetSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextMessageLimit, err = intFromEnv("LLM_CONTEXT_MESSAGES", cfg.ContextMessageLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.PingInterval < 5*time.Second {
		return Config{}, fmt.Errorf("APP_PING_INTERVAL must be at least 5s")
	}
	if cfg.LLMMaxTokens <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if cfg.InputSampleRate <= 0 || cfg.TargetSampleRate <= 0 {
		return Config{}, fmt.Errorf("audio sample rates must be positive")
	}
	if cfg.ContextMessageLimit <= 0 {
		return Config{}, fmt.Errorf("LLM_CONTEXT_MESSAGES must be positive")
	}

	return cfg, nil
}

// LLMConfigured reports whether the language-model upstream is usable. A
// missing endpoint or model is a startup warning, not a crash; the health
// endpoint surfaces it as a degraded state.
func (c Config) LLMConfigured() bool {
	return (c.LLMBaseURL != "" || c.LLMAPIKey != "") && c.LLMModel != ""
}

// TTSConfigured reports whether speech synthesis has the credentials it
// needs. Absence is a signal to skip synthesis, not an error.
func (c Config) TTSConfigured() bool {
	return c.ElevenLabsAPIKey != "" && c.ElevenLabsVoiceID != ""
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
