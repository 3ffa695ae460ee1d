package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func fastPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		Factor:      2,
		Retryable:   retryable,
	}
}

func TestPolicy_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(func(error) bool { return true }).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy(func(error) bool { return true }).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy(func(error) bool { return true }).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errTransient)
}

func TestPolicy_NonRetryablePropagatesImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := fastPolicy(func(err error) bool { return errors.Is(err, errTransient) }).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_NilRetryableMeansNoRetries(t *testing.T) {
	calls := 0
	p := fastPolicy(nil)
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.Equal(t, errTransient, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_ContextCancellationWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	p := Policy{
		MaxAttempts: 10,
		MinBackoff:  50 * time.Millisecond,
		MaxBackoff:  time.Second,
		Factor:      2,
		Retryable:   func(error) bool { return true },
	}
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy(func(error) bool { return true })

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.MinBackoff)
	assert.Equal(t, 30*time.Second, p.MaxBackoff)
}
