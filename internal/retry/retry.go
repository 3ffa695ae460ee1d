package retry

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
)

// Policy is an explicit retry policy composed around external calls: max
// attempts, exponential backoff and a retryable-error predicate, visible at
// the call site instead of hidden in a decorator.
type Policy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	Factor      float64
	// Retryable decides whether an error is transient. Nil means nothing
	// is retried.
	Retryable func(error) bool
}

// DefaultPolicy mirrors the transient-failure contract of the external
// collaborators: 3 attempts, 1s..30s exponential backoff.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		MinBackoff:  time.Second,
		MaxBackoff:  30 * time.Second,
		Factor:      2,
		Retryable:   retryable,
	}
}

// Do runs op, retrying transient failures until the attempt ceiling is hit.
// Non-transient errors propagate immediately. Context cancellation stops
// further retries and wins over the retry budget.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	b := &backoff.Backoff{
		Min:    p.MinBackoff,
		Max:    p.MaxBackoff,
		Factor: p.Factor,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}

	return errors.Wrapf(lastErr, "all %d attempts failed", p.MaxAttempts)
}
