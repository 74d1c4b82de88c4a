package xretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConflict = errors.New("conflict")

func noWait() RetryerOption { return WithBackoff(FixedBackoff(0)) }

// =============================================================================
// Retryer
// =============================================================================

func TestRetryer_SucceedsAfterRetries(t *testing.T) {
	var attempts []uint
	calls := 0
	r := NewRetryer(WithAttempts(5), noWait(), WithOnRetry(func(n uint, _ error) {
		attempts = append(attempts, n)
	}))

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []uint{1, 2}, attempts)
}

func TestRetryer_ExhaustsAttempts(t *testing.T) {
	calls := 0
	r := NewRetryer(WithAttempts(4), noWait())
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errConflict
	})
	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 4, calls)
}

func TestRetryer_RetryIf(t *testing.T) {
	other := errors.New("boom")
	calls := 0
	r := NewRetryer(WithAttempts(5), noWait(), WithRetryIf(func(err error) bool {
		return errors.Is(err, errConflict)
	}))
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errConflict
		}
		return other
	})
	assert.ErrorIs(t, err, other)
	assert.Equal(t, 2, calls, "non-matching errors stop the loop")
}

func TestRetryer_Permanent(t *testing.T) {
	calls := 0
	r := NewRetryer(WithAttempts(5), noWait())
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errConflict)
	})
	assert.ErrorIs(t, err, errConflict)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)

	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errConflict))
	assert.Equal(t, "permanent error", (&PermanentError{}).Error())
}

func TestRetryer_UntilSucceededStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := NewRetryer(WithAttempts(0), WithBackoff(FixedBackoff(time.Millisecond)))
	err := r.Do(ctx, func(context.Context) error {
		calls++
		if calls == 10 {
			cancel()
		}
		return errConflict
	})
	require.Error(t, err)
	assert.GreaterOrEqual(t, calls, 10)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	v, err := DoWithData(context.Background(), NewRetryer(noWait()), func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errConflict
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

// =============================================================================
// 退避
// =============================================================================

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Initial: 10 * time.Millisecond, Max: 80 * time.Millisecond}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 80 * time.Millisecond},
		{10, 80 * time.Millisecond},
		{1 << 20, 80 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	b := ExponentialBackoff{Initial: 100 * time.Millisecond, Multiplier: 1, Jitter: 0.5}
	for range 100 {
		d := b.NextDelay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestExponentialBackoff_Defaults(t *testing.T) {
	var zero ExponentialBackoff
	assert.Equal(t, DefaultInitialDelay, zero.NextDelay(1))
	assert.Equal(t, 2*DefaultInitialDelay, zero.NextDelay(2))
	assert.Equal(t, DefaultMaxDelay, zero.NextDelay(100))

	inverted := ExponentialBackoff{Initial: time.Second, Max: time.Millisecond, Multiplier: 0.5}
	assert.Equal(t, time.Second, inverted.NextDelay(3), "max is raised to initial")
}
