// Command smokevoice exercises a running verba server end to end: it dials
// the voice websocket, sends one synthetic utterance, and prints every
// message the server replies with.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/lcoppola/verba/internal/audio"
	"github.com/lcoppola/verba/internal/client"
	"github.com/lcoppola/verba/internal/protocol"
)

type options struct {
	url            string
	sampleRate     int
	utteranceMS    int
	conversationID int64
	timeout        time.Duration
	reconnects     int
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "smokevoice: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "smokevoice: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var timeoutMS int

	flag.StringVar(&cfg.url, "url", "ws://127.0.0.1:8080/ws", "voice websocket URL")
	flag.IntVar(&cfg.sampleRate, "sample-rate", 16000, "PCM16 sample rate of the synthetic utterance")
	flag.IntVar(&cfg.utteranceMS, "utterance-ms", 800, "length of the synthetic utterance in milliseconds")
	flag.Int64Var(&cfg.conversationID, "conversation", 0, "bind to an existing conversation id before speaking (optional)")
	flag.IntVar(&timeoutMS, "timeout-ms", 30000, "overall deadline in milliseconds")
	flag.IntVar(&cfg.reconnects, "reconnects", 3, "consecutive failed dials before giving up")
	flag.Parse()

	cfg.url = strings.TrimSpace(cfg.url)
	if cfg.url == "" {
		return options{}, fmt.Errorf("url is required")
	}
	if cfg.sampleRate <= 0 {
		return options{}, fmt.Errorf("sample-rate must be > 0")
	}
	if cfg.utteranceMS < 100 || cfg.utteranceMS > 10000 {
		return options{}, fmt.Errorf("utterance-ms must be in [100,10000]")
	}
	if timeoutMS < 1000 {
		timeoutMS = 1000
	}
	cfg.timeout = time.Duration(timeoutMS) * time.Millisecond
	return cfg, nil
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	msgs := make(chan any, 32)
	c := client.New(cfg.url, func(msg any) {
		select {
		case msgs <- msg:
		default:
		}
	}, client.Options{MaxReconnects: cfg.reconnects})

	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx)
	}()

	if err := awaitEstablished(ctx, msgs, runErr); err != nil {
		return err
	}

	if cfg.conversationID > 0 {
		if err := c.SelectConversation(cfg.conversationID); err != nil {
			return fmt.Errorf("select conversation %d: %w", cfg.conversationID, err)
		}
	}

	pcm := tonePCM16(cfg.sampleRate, cfg.utteranceMS)
	fmt.Printf("smokevoice: sending %d bytes of PCM16 at %dHz\n", len(pcm), cfg.sampleRate)
	if err := c.SendAudio(pcm); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("deadline reached waiting for server reply")
		case err := <-runErr:
			return fmt.Errorf("connection lost: %w", err)
		case msg := <-msgs:
			printMessage(msg)
			switch m := msg.(type) {
			case protocol.AIResponse:
				fmt.Println("smokevoice: round trip completed")
				return nil
			case protocol.ErrorMessage:
				return fmt.Errorf("server error: %s", m.Error)
			}
		}
	}
}

func awaitEstablished(ctx context.Context, msgs <-chan any, runErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("deadline reached waiting for connection_established")
		case err := <-runErr:
			return fmt.Errorf("connect: %w", err)
		case msg := <-msgs:
			if est, ok := msg.(protocol.ConnectionEstablished); ok {
				fmt.Printf("smokevoice: connected session=%s\n", est.SessionID)
				return nil
			}
			printMessage(msg)
		}
	}
}

func printMessage(msg any) {
	switch m := msg.(type) {
	case protocol.NewConversation:
		fmt.Printf("smokevoice: new_conversation id=%d title=%q\n", m.Conversation.ID, m.Conversation.Title)
	case protocol.ConversationSelected:
		fmt.Printf("smokevoice: conversation_selected id=%d\n", m.ConversationID)
	case protocol.Transcription:
		fmt.Printf("smokevoice: transcription %q\n", m.Text)
	case protocol.AIResponse:
		fmt.Printf("smokevoice: ai_response %q\n", m.Text)
	case protocol.Status:
		fmt.Printf("smokevoice: status %s\n", m.Status)
	case protocol.OutboundAudio:
		fmt.Printf("smokevoice: audio %d bytes\n", len(m.Audio))
	case protocol.ErrorMessage:
		fmt.Printf("smokevoice: error %s\n", m.Error)
	default:
		fmt.Printf("smokevoice: message %T\n", msg)
	}
}

// tonePCM16 renders a 440Hz sine so the payload clears the keep-alive
// threshold and resembles real captured speech in shape.
func tonePCM16(sampleRate, ms int) []byte {
	samples := make([]int16, sampleRate*ms/1000)
	for i := range samples {
		samples[i] = int16(math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)) * 8000)
	}
	return audio.Int16ToBytesLE(samples)
}
