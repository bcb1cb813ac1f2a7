// Package app assembles the service from configuration: store, provider
// adapters, pipeline, registry and HTTP surface.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/lcoppola/verba/internal/config"
	"github.com/lcoppola/verba/internal/httpapi"
	"github.com/lcoppola/verba/internal/observability"
	"github.com/lcoppola/verba/internal/session"
	"github.com/lcoppola/verba/internal/store"
	"github.com/lcoppola/verba/internal/voice"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Registry *session.Registry
	Pipeline *voice.Pipeline
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	conversationStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("conversation store init failed: %w", err)
	}
	if cfg.DatabaseURL == "" {
		log.Printf("conversation store: in-memory (DATABASE_URL not set; history is lost on restart)")
	} else {
		log.Printf("conversation store: postgres")
	}

	if !cfg.LLMConfigured() {
		// Degraded, not fatal: /healthz surfaces it and utterances fail
		// with a protocol error until the model is configured.
		log.Printf("warning: language model not configured (set LLM_BASE_URL or LLM_API_KEY, and LLM_MODEL)")
	}
	generator := voice.NewOpenAIGenerator(voice.GeneratorConfig{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	})

	transcriber := voice.NewHTTPTranscriber(cfg.TranscriberURL)
	if cfg.TranscriberURL == "" {
		log.Printf("warning: TRANSCRIBER_URL not set; transcription will fail")
	}

	synthesizer := voice.NewElevenLabsSynthesizer(voice.ElevenLabsConfig{
		APIKey:          cfg.ElevenLabsAPIKey,
		VoiceID:         cfg.ElevenLabsVoiceID,
		Stability:       cfg.TTSStability,
		SimilarityBoost: cfg.TTSSimilarityBoost,
	})
	if synthesizer.Enabled() {
		log.Printf("speech synthesis: elevenlabs")
	} else {
		log.Printf("speech synthesis: disabled (text-only replies)")
	}

	pipeline := voice.NewPipeline(conversationStore, transcriber, generator, synthesizer, metrics, voice.PipelineConfig{
		ContextMessages:  cfg.ContextMessageLimit,
		InputSampleRate:  cfg.InputSampleRate,
		TargetSampleRate: cfg.TargetSampleRate,
	})

	registry := session.NewRegistry()
	api := httpapi.New(cfg, registry, pipeline, metrics)

	cleanup := func() error {
		registry.CloseAll()
		return conversationStore.Close()
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Registry: registry,
		Pipeline: pipeline,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}
