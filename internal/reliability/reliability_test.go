package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoffCaps(t *testing.T) {
	base := 100 * time.Millisecond
	cap := 800 * time.Millisecond

	if got := ExponentialBackoff(0, base, cap); got != base {
		t.Fatalf("attempt 0 backoff = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(2, base, cap); got != 400*time.Millisecond {
		t.Fatalf("attempt 2 backoff = %v, want 400ms", got)
	}
	if got := ExponentialBackoff(10, base, cap); got != cap {
		t.Fatalf("attempt 10 backoff = %v, want cap %v", got, cap)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&StatusError{Provider: "tts", Code: 503}) {
		t.Fatalf("503 should be retryable")
	}
	if IsRetryable(&StatusError{Provider: "tts", Code: 400}) {
		t.Fatalf("400 should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain error should not be retryable")
	}
}

func TestCallPolicyRetriesOnceOnRetryable(t *testing.T) {
	p := CallPolicy{Attempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &StatusError{Provider: "stt", Code: 502}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestCallPolicyStopsOnNonRetryable(t *testing.T) {
	p := CallPolicy{Attempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	calls := 0
	wantErr := errors.New("bad request")
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestCallPolicyGivesUpAfterAttempts(t *testing.T) {
	p := CallPolicy{Attempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Provider: "stt", Code: 503}
	})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Do() error = %v, want StatusError", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestReconnectPolicyExhaustsThenResets(t *testing.T) {
	p := NewReconnectPolicy(3, 10*time.Millisecond, 40*time.Millisecond)

	var delays []time.Duration
	for {
		d, err := p.NextDelay()
		if err != nil {
			if !errors.Is(err, ErrReconnectExhausted) {
				t.Fatalf("NextDelay() error = %v, want ErrReconnectExhausted", err)
			}
			break
		}
		delays = append(delays, d)
	}
	if len(delays) != 3 {
		t.Fatalf("attempts before exhaustion = %d, want 3", len(delays))
	}
	if delays[0] != 10*time.Millisecond || delays[1] != 20*time.Millisecond || delays[2] != 40*time.Millisecond {
		t.Fatalf("delays = %v, want doubling capped at 40ms", delays)
	}

	// Exhausted policies stay exhausted until a manual reset.
	if _, err := p.NextDelay(); !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("NextDelay() after exhaustion error = %v, want ErrReconnectExhausted", err)
	}

	p.Reset()
	if d, err := p.NextDelay(); err != nil || d != 10*time.Millisecond {
		t.Fatalf("NextDelay() after reset = %v, %v; want 10ms, nil", d, err)
	}
}
