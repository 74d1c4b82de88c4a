package xbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errDown     = errors.New("backend down")
	errConflict = errors.New("conflict")
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var changes []string
	b := NewBreaker("replica:report",
		WithFailures(3),
		WithTimeout(50*time.Millisecond),
		WithOnStateChange(func(_ string, from, to State) {
			changes = append(changes, from.String()+"->"+to.String())
		}),
	)
	ctx := context.Background()

	for range 3 {
		assert.ErrorIs(t, b.Do(ctx, func() error { return errDown }), errDown)
	}
	assert.Equal(t, StateOpen, b.State())

	calls := 0
	err := b.Do(ctx, func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "replica:report")
	assert.Zero(t, calls, "open breaker short-circuits")

	require.Eventually(t, func() bool { return b.State() == StateHalfOpen }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Do(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, changes)
}

func TestBreaker_SuccessIf(t *testing.T) {
	b := NewBreaker("cas", WithFailures(2), WithSuccessIf(func(err error) bool {
		return errors.Is(err, errConflict)
	}))
	for range 5 {
		assert.ErrorIs(t, b.Do(context.Background(), func() error { return errConflict }), errConflict)
	}
	assert.Equal(t, StateClosed, b.State(), "conflicts do not count as failures")
}

func TestExecute(t *testing.T) {
	b := NewBreaker("values")
	v, err := Execute(context.Background(), b, func() ([]string, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)
	assert.Equal(t, "values", b.Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Execute(ctx, b, func() (int, error) {
		t.Fatal("must not run")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
