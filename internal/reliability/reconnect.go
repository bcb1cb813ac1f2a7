package reliability

import (
	"errors"
	"sync"
	"time"
)

// ErrReconnectExhausted is returned once the attempt cap is reached; only a
// manual Reset allows further attempts.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// ReconnectPolicy tracks reconnection attempts with capped exponential
// backoff and a hard attempt cap.
type ReconnectPolicy struct {
	mu          sync.Mutex
	attempt     int
	maxAttempts int
	base        time.Duration
	cap         time.Duration
}

func NewReconnectPolicy(maxAttempts int, base, cap time.Duration) *ReconnectPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if cap <= 0 {
		cap = 30 * time.Second
	}
	return &ReconnectPolicy{maxAttempts: maxAttempts, base: base, cap: cap}
}

// NextDelay returns the wait before the next attempt and records the attempt.
// It fails with ErrReconnectExhausted once the cap is reached.
func (p *ReconnectPolicy) NextDelay() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt >= p.maxAttempts {
		return 0, ErrReconnectExhausted
	}
	d := ExponentialBackoff(p.attempt, p.base, p.cap)
	p.attempt++
	return d, nil
}

// Reset clears the attempt counter, on successful open or manual action.
func (p *ReconnectPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempt = 0
}

func (p *ReconnectPolicy) Attempt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}
