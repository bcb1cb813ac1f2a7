package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Conn is the slice of a transport connection the registry drives: a liveness
// probe and a forced close. Probes must be safe to issue concurrently with
// application writes (gorilla's WriteControl is).
type Conn interface {
	Ping() error
	Close() error
}

type entry struct {
	session *Session
	conn    Conn
	alive   bool
}

// Registry tracks all live sessions. It is the only state in the service
// mutated from multiple goroutines: per-connection handlers add and remove,
// the sweep ticker probes and evicts.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Add registers a session and its connection. The session starts alive so the
// first sweep probes it instead of evicting it.
func (r *Registry) Add(s *Session, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.ID] = &entry{session: s, conn: conn, alive: true}
}

// Remove drops a session from the registry. Removing an unknown or already
// removed session is a no-op.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return e.session, nil
}

// MarkAlive records a liveness acknowledgment (pong) for the next sweep.
func (r *Registry) MarkAlive(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		e.alive = true
	}
}

func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep terminates every session that has not acknowledged the previous probe
// and sends a fresh probe to the rest, clearing their flag until the next
// pong. It returns the number of connections closed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	var dead []*entry
	var live []*entry
	for id, e := range r.entries {
		if !e.alive {
			dead = append(dead, e)
			delete(r.entries, id)
			continue
		}
		e.alive = false
		live = append(live, e)
	}
	r.mu.Unlock()

	for _, e := range dead {
		_ = e.conn.Close()
	}
	for _, e := range live {
		if err := e.conn.Ping(); err != nil {
			_ = e.conn.Close()
			r.Remove(e.session.ID)
		}
	}
	return len(dead)
}

// StartSweeper runs Sweep on a fixed interval until ctx is done. onClosed,
// when non-nil, receives the number of connections each sweep terminated.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration, onClosed func(n int)) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 && onClosed != nil {
					onClosed(n)
				}
			}
		}
	}()
}

// CloseAll forcibly terminates every live connection, used for broadcast
// shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var conns []Conn
	for id, e := range r.entries {
		conns = append(conns, e.conn)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
