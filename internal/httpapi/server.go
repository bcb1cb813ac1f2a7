package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lcoppola/verba/internal/config"
	"github.com/lcoppola/verba/internal/observability"
	"github.com/lcoppola/verba/internal/protocol"
	"github.com/lcoppola/verba/internal/session"
)

const (
	readDeadline  = 120 * time.Second
	writeDeadline = 10 * time.Second
	maxFrameBytes = 2 << 20
)

// Orchestrator drives one websocket session: it consumes parsed client
// messages from inbound and emits protocol messages on outbound.
type Orchestrator interface {
	RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error
}

type Server struct {
	cfg          config.Config
	registry     *session.Registry
	orchestrator Orchestrator
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, registry *session.Registry, orchestrator Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		registry:     registry,
		orchestrator: orchestrator,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(cfg, r)
			},
		},
	}
}

// originAllowed gates browser connections. Non-browser clients omit Origin
// and are let through; browsers must match the serving host or an entry in
// the configured allow-list.
func originAllowed(cfg config.Config, r *http.Request) bool {
	if cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/perf/latency", s.handlePerfLatency)
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if !s.cfg.LLMConfigured() {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          status,
		"llm_configured":  s.cfg.LLMConfigured(),
		"tts_configured":  s.cfg.TTSConfigured(),
		"active_sessions": s.registry.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// handlePerfLatency serves the rolling per-stage latency window, a quick
// percentile view without a Prometheus scrape in the middle.
func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.Window.Snapshot())
}

// wsConn wraps a gorilla connection behind the registry's Conn so the
// liveness sweeper can probe it. Control writes are serialized against the
// writer goroutine by gorilla itself (WriteControl is concurrency-safe).
type wsConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error (403 on origin rejection).
		return
	}

	sess := session.New()
	wrapped := &wsConn{conn: conn}
	s.registry.Add(sess, wrapped)
	s.metrics.ActiveSessions.Set(float64(s.registry.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("connected").Inc()

	defer func() {
		s.registry.Remove(sess.ID)
		_ = wrapped.Close()
		s.metrics.ActiveSessions.Set(float64(s.registry.ActiveCount()))
		s.metrics.SessionEvents.WithLabelValues("disconnected").Inc()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = s.orchestrator.RunConnection(ctx, sess, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if audioMsg, isAudio := msg.(protocol.OutboundAudio); isAudio {
					if err := conn.WriteMessage(websocket.BinaryMessage, audioMsg.Audio); err != nil {
						cancel()
						return
					}
					s.metrics.WSMessages.WithLabelValues("outbound", "audio").Inc()
					continue
				}
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := outboundTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		s.registry.MarkAlive(sess.ID)
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		s.registry.MarkAlive(sess.ID)

		var parsed any
		switch msgType {
		case websocket.BinaryMessage:
			s.metrics.WSMessages.WithLabelValues("inbound", "audio").Inc()
			parsed = protocol.AudioFrame{PCM: data}
		case websocket.TextMessage:
			var parseErr error
			parsed, parseErr = protocol.ParseClientMessage(data)
			if parseErr != nil {
				// Malformed control frames never tear down the session.
				log.Printf("session %s: ignoring client message: %v", sess.ID, parseErr)
				s.metrics.WSMessages.WithLabelValues("inbound", "invalid").Inc()
				continue
			}
			if t, ok := inboundTypeOf(parsed); ok {
				s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
			}
		default:
			continue
		}

		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
}

func inboundTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.SelectConversation:
		return m.Type, true
	case protocol.Debug:
		return m.Type, true
	default:
		return "", false
	}
}

func outboundTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ConnectionEstablished:
		return m.Type, true
	case protocol.ConversationSelected:
		return m.Type, true
	case protocol.NewConversation:
		return m.Type, true
	case protocol.Transcription:
		return m.Type, true
	case protocol.AIResponse:
		return m.Type, true
	case protocol.Status:
		return m.Type, true
	case protocol.ErrorMessage:
		return m.Type, true
	default:
		return "", false
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
