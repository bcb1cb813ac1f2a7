package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lcoppola/verba/internal/audio"
	"github.com/lcoppola/verba/internal/observability"
	"github.com/lcoppola/verba/internal/policy"
	"github.com/lcoppola/verba/internal/protocol"
	"github.com/lcoppola/verba/internal/reliability"
	"github.com/lcoppola/verba/internal/session"
	"github.com/lcoppola/verba/internal/store"
)

const systemInstruction = "You are a friendly voice assistant. Keep replies short and conversational; they will be read aloud."

const summaryInstruction = `Summarize the conversation below. Respond with JSON only: {"title": "...", "summary": "..."}. Keep the title under six words.`

const (
	summaryMinMessages = 2
	summarySourceLimit = 6
	summaryTimeout     = 30 * time.Second
)

// Pipeline drives one utterance through transcribe, generate, synthesize and
// deliver. A session processes at most one utterance at a time; audio frames
// arriving mid-flight are answered with a busy status and dropped.
type Pipeline struct {
	store        store.Store
	transcriber  Transcriber
	generator    Generator
	synthesizer  Synthesizer
	metrics      *observability.Metrics
	callPolicy   reliability.CallPolicy
	contextLimit int
	inputRate    int
	targetRate   int
}

type PipelineConfig struct {
	ContextMessages  int
	InputSampleRate  int
	TargetSampleRate int
}

func NewPipeline(
	st store.Store,
	transcriber Transcriber,
	generator Generator,
	synthesizer Synthesizer,
	metrics *observability.Metrics,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.ContextMessages <= 0 {
		cfg.ContextMessages = 10
	}
	if cfg.TargetSampleRate <= 0 {
		cfg.TargetSampleRate = 16000
	}
	// Inbound frames arrive already at the target rate unless the input
	// rate says otherwise; a zero value must not trigger a resample.
	if cfg.InputSampleRate <= 0 {
		cfg.InputSampleRate = cfg.TargetSampleRate
	}
	return &Pipeline{
		store:        st,
		transcriber:  transcriber,
		generator:    generator,
		synthesizer:  synthesizer,
		metrics:      metrics,
		callPolicy:   reliability.DefaultCallPolicy(),
		contextLimit: cfg.ContextMessages,
		inputRate:    cfg.InputSampleRate,
		targetRate:   cfg.TargetSampleRate,
	}
}

// RunConnection drives one websocket session until the inbound channel closes
// or ctx is cancelled.
func (p *Pipeline) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	p.send(ctx, outbound, protocol.ConnectionEstablished{
		Type:      protocol.TypeConnectionEstablished,
		SessionID: s.ID,
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			s.Touch()
			switch m := msg.(type) {
			case protocol.AudioFrame:
				// Sub-threshold frames are keep-alive noise: no state
				// change, no reply.
				if protocol.IsKeepAliveFrame(m.PCM) {
					continue
				}
				if !s.BeginUtterance() {
					p.send(ctx, outbound, protocol.Status{Type: protocol.TypeStatus, Status: "busy"})
					p.metrics.SessionEvents.WithLabelValues("utterance_rejected_busy").Inc()
					continue
				}
				go p.runUtterance(ctx, s, m.PCM, outbound)
			case protocol.SelectConversation:
				s.BindConversation(m.ConversationID)
				p.send(ctx, outbound, protocol.ConversationSelected{
					Type:           protocol.TypeConversationSelected,
					ConversationID: m.ConversationID,
				})
			case protocol.Debug:
				p.runDebug(ctx, m, outbound)
			}
		}
	}
}

// runUtterance executes one full pipeline cycle. Persistence uses a context
// detached from the connection so adapter results already in flight are still
// recorded after a socket close; deliveries are gated on connCtx and silently
// dropped once the socket is gone.
func (p *Pipeline) runUtterance(connCtx context.Context, s *session.Session, pcm []byte, outbound chan<- any) {
	ctx := context.WithoutCancel(connCtx)
	start := time.Now()

	fail := func(stage string, err error) {
		log.Printf("session %s: %s failed: %v", s.ID, stage, err)
		p.metrics.SessionEvents.WithLabelValues("utterance_failed").Inc()
		s.SetState(session.StateError)
		s.SetState(session.StateIdle)
		p.send(connCtx, outbound, protocol.ErrorMessage{Type: protocol.TypeError, Error: err.Error()})
	}

	if p.inputRate != p.targetRate {
		pcm = audio.ResamplePCM16LE(pcm, p.inputRate, p.targetRate)
	}

	convID := s.Conversation()
	if convID == 0 {
		conv, err := p.store.CreateConversation(ctx, store.DefaultTitle)
		if err != nil {
			fail("create conversation", err)
			return
		}
		s.BindConversation(conv.ID)
		convID = conv.ID
		p.send(connCtx, outbound, protocol.NewConversation{
			Type:         protocol.TypeNewConversation,
			Conversation: conversationInfo(conv),
		})
	}

	s.SetState(session.StateTranscribing)
	stageStart := time.Now()
	var transcript string
	err := p.callPolicy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		transcript, callErr = p.transcriber.Transcribe(ctx, pcm, p.targetRate)
		return callErr
	})
	if err != nil {
		p.metrics.ProviderErrors.WithLabelValues("transcriber").Inc()
		fail("transcription", err)
		return
	}
	p.metrics.ObserveStage("transcribe", time.Since(stageStart))

	// Persist before announcing so the client never sees a transcript the
	// store does not have. Dictated PII is masked at rest; the live reply
	// keeps the raw text.
	storedTranscript, _ := policy.RedactPII(transcript)
	if _, err := p.store.AppendMessage(ctx, convID, store.RoleUser, storedTranscript); err != nil {
		fail("persist transcript", err)
		return
	}
	p.send(connCtx, outbound, protocol.Transcription{Type: protocol.TypeTranscription, Text: transcript})

	s.SetState(session.StateGenerating)
	stageStart = time.Now()
	recent, err := p.store.RecentMessages(ctx, convID, p.contextLimit)
	if err != nil {
		fail("load context", err)
		return
	}
	messages := make([]ChatMessage, 0, len(recent)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: systemInstruction})
	for _, m := range recent {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	var reply string
	err = p.callPolicy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		reply, callErr = p.generator.Generate(ctx, messages)
		return callErr
	})
	if err != nil {
		p.metrics.ProviderErrors.WithLabelValues("llm").Inc()
		fail("generation", err)
		return
	}
	p.metrics.ObserveStage("generate", time.Since(stageStart))

	storedReply, _ := policy.RedactPII(reply)
	if _, err := p.store.AppendMessage(ctx, convID, store.RoleAssistant, storedReply); err != nil {
		fail("persist reply", err)
		return
	}
	p.send(connCtx, outbound, protocol.AIResponse{Type: protocol.TypeAIResponse, Text: reply})

	if p.synthesizer != nil && p.synthesizer.Enabled() {
		s.SetState(session.StateSynthesizing)
		stageStart = time.Now()
		var speech []byte
		err = p.callPolicy.Do(ctx, func(ctx context.Context) error {
			var callErr error
			speech, callErr = p.synthesizer.Synthesize(ctx, reply)
			return callErr
		})
		if err != nil {
			p.metrics.ProviderErrors.WithLabelValues("tts").Inc()
			fail("synthesis", err)
			return
		}
		p.metrics.ObserveStage("synthesize", time.Since(stageStart))

		s.SetState(session.StateDelivering)
		p.send(connCtx, outbound, protocol.OutboundAudio{Audio: speech})
	}

	if err := p.store.Touch(ctx, convID); err != nil {
		log.Printf("session %s: touch conversation %d: %v", s.ID, convID, err)
	}
	if n, err := p.store.CountMessages(ctx, convID); err == nil && n >= summaryMinMessages {
		go p.summarizeConversation(ctx, convID)
	}

	p.metrics.ObserveStage("utterance", time.Since(start))
	p.metrics.SessionEvents.WithLabelValues("utterance_completed").Inc()
	s.SetState(session.StateIdle)
}

// summarizeConversation derives a title and summary from the conversation's
/// opening turns. It is best-effort: any failure falls back to the default
// title and never surfaces to the client.
func (p *Pipeline) summarizeConversation(ctx context.Context, convID int64) {
	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	title, summary := store.DefaultTitle, ""
	msgs, err := p.store.FirstMessages(ctx, convID, summarySourceLimit)
	if err != nil {
		log.Printf("summarize conversation %d: load messages: %v", convID, err)
	} else if len(msgs) > 0 {
		var transcriptText strings.Builder
		for _, m := range msgs {
			fmt.Fprintf(&transcriptText, "%s: %s\n", m.Role, m.Content)
		}
		out, genErr := p.generator.Generate(ctx, []ChatMessage{
			{Role: "system", Content: summaryInstruction},
			{Role: "user", Content: transcriptText.String()},
		})
		if genErr != nil {
			log.Printf("summarize conversation %d: %v", convID, genErr)
		} else if t, s, ok := parseSummary(out); ok {
			title, summary = t, s
		}
	}

	if err := p.store.UpdateSummary(ctx, convID, title, summary); err != nil {
		log.Printf("summarize conversation %d: persist: %v", convID, err)
	}
}

func parseSummary(out string) (title, summary string, ok bool) {
	// Models occasionally fence or pad the JSON; take the outermost object.
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return "", "", false
	}
	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), &parsed); err != nil {
		return "", "", false
	}
	parsed.Title = strings.TrimSpace(parsed.Title)
	if parsed.Title == "" {
		return "", "", false
	}
	return parsed.Title, strings.TrimSpace(parsed.Summary), true
}

// runDebug executes a single named adapter call in isolation: no persistence,
// no conversation binding, no session state change.
func (p *Pipeline) runDebug(ctx context.Context, m protocol.Debug, outbound chan<- any) {
	debugErr := func(err error) {
		p.send(ctx, outbound, protocol.ErrorMessage{Type: protocol.TypeError, Error: err.Error()})
	}

	switch m.Action {
	case protocol.DebugTranscribe:
		pcm, err := base64.StdEncoding.DecodeString(m.AudioBase64)
		if err != nil {
			debugErr(fmt.Errorf("decode debug audio: %w", err))
			return
		}
		text, err := p.transcriber.Transcribe(ctx, pcm, p.targetRate)
		if err != nil {
			debugErr(err)
			return
		}
		p.send(ctx, outbound, protocol.Transcription{Type: protocol.TypeTranscription, Text: text})
	case protocol.DebugGenerate:
		reply, err := p.generator.Generate(ctx, []ChatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: m.Text},
		})
		if err != nil {
			debugErr(err)
			return
		}
		p.send(ctx, outbound, protocol.AIResponse{Type: protocol.TypeAIResponse, Text: reply})
	case protocol.DebugSynthesize:
		if p.synthesizer == nil || !p.synthesizer.Enabled() {
			debugErr(fmt.Errorf("speech synthesis is not configured"))
			return
		}
		speech, err := p.synthesizer.Synthesize(ctx, m.Text)
		if err != nil {
			debugErr(err)
			return
		}
		p.send(ctx, outbound, protocol.OutboundAudio{Audio: speech})
	}
}

func (p *Pipeline) send(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case <-ctx.Done():
	case outbound <- msg:
	}
}

func conversationInfo(c store.Conversation) protocol.ConversationInfo {
	return protocol.ConversationInfo{
		ID:        c.ID,
		Title:     c.Title,
		Summary:   c.Summary,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
