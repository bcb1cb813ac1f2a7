// Package client implements a reconnecting websocket client for the voice
// endpoint, used by smoke tooling and programmatic (non-browser) callers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lcoppola/verba/internal/protocol"
	"github.com/lcoppola/verba/internal/reliability"
)

// Handler receives decoded server messages. Binary frames arrive as
// protocol.OutboundAudio; text frames as their typed protocol structs.
type Handler func(msg any)

type Client struct {
	url       string
	handler   Handler
	reconnect *reliability.ReconnectPolicy
	dialer    *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

type Options struct {
	// MaxReconnects caps consecutive failed dials before Run gives up.
	MaxReconnects int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
}

func New(url string, handler Handler, opts Options) *Client {
	return &Client{
		url:       url,
		handler:   handler,
		reconnect: reliability.NewReconnectPolicy(opts.MaxReconnects, opts.BaseBackoff, opts.MaxBackoff),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Run dials the endpoint and pumps server messages into the handler,
// redialing with backoff when the connection drops. It returns when ctx is
// cancelled or the reconnect budget is exhausted.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, res, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if res != nil && res.StatusCode == http.StatusForbidden {
				return fmt.Errorf("dial %s: origin rejected", c.url)
			}
			delay, policyErr := c.reconnect.NextDelay()
			if policyErr != nil {
				return fmt.Errorf("dial %s: %w", c.url, policyErr)
			}
			log.Printf("client: dial %s failed (attempt %d): %v; retrying in %s", c.url, c.reconnect.Attempt(), err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		// A successful open restores the full reconnect budget.
		c.reconnect.Reset()
		c.setConn(conn)

		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("client: connection to %s lost: %v; reconnecting", c.url, err)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		switch msgType {
		case websocket.BinaryMessage:
			c.handler(protocol.OutboundAudio{Audio: data})
		case websocket.TextMessage:
			msg, err := decodeServerMessage(data)
			if err != nil {
				log.Printf("client: ignoring server message: %v", err)
				continue
			}
			c.handler(msg)
		}
	}
}

// SendAudio submits one utterance as a single binary frame.
func (c *Client) SendAudio(pcm []byte) error {
	conn := c.currentConn()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// SelectConversation asks the server to bind this session to an existing
// conversation.
func (c *Client) SelectConversation(id int64) error {
	conn := c.currentConn()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return conn.WriteJSON(protocol.SelectConversation{
		Type:           protocol.TypeSelectConversation,
		ConversationID: id,
	})
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func decodeServerMessage(data []byte) (any, error) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	switch env.Type {
	case protocol.TypeConnectionEstablished:
		return decodeAs[protocol.ConnectionEstablished](data)
	case protocol.TypeConversationSelected:
		return decodeAs[protocol.ConversationSelected](data)
	case protocol.TypeNewConversation:
		return decodeAs[protocol.NewConversation](data)
	case protocol.TypeTranscription:
		return decodeAs[protocol.Transcription](data)
	case protocol.TypeAIResponse:
		return decodeAs[protocol.AIResponse](data)
	case protocol.TypeStatus:
		return decodeAs[protocol.Status](data)
	case protocol.TypeError:
		return decodeAs[protocol.ErrorMessage](data)
	default:
		return nil, fmt.Errorf("%w: %q", protocol.ErrUnsupportedType, env.Type)
	}
}

func decodeAs[T any](data []byte) (any, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
