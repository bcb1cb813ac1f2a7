package reliability

import (
	"context"
	"time"
)

// CallPolicy wraps adapter calls with a per-attempt timeout and a bounded
// number of attempts. Retry happens only for retryable failures.
type CallPolicy struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Timeout     time.Duration
}

// DefaultCallPolicy allows one retry after a short backoff.
func DefaultCallPolicy() CallPolicy {
	return CallPolicy{
		Attempts:    2,
		BaseBackoff: 250 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Do runs fn under the policy. Non-retryable errors return immediately.
func (p CallPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := ExponentialBackoff(i-1, p.BaseBackoff, p.MaxBackoff)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		err = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
