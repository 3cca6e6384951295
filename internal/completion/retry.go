package completion

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a transient failure is retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     int
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is 3 attempts with 1s, 2s backoff capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		Multiplier:     2,
		MaxBackoff:     10 * time.Second,
	}
}

// do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. fn receives the 1-based attempt number.
func (p RetryPolicy) do(ctx context.Context, model string, fn func(attempt int) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	var lastErr error
	backoff := p.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, &TransportError{Model: model, Attempts: attempt - 1, Err: err}
		}

		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = withAttempts(err, attempt)
		if !retryable(err) {
			return attempt, lastErr
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return attempt, &TransportError{Model: model, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= time.Duration(mult)
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		}
	}

	return attempts, lastErr
}
