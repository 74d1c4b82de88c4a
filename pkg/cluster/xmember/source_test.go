package xmember

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource(t *testing.T) {
	t.Run("assigns ages in list order", func(t *testing.T) {
		s := NewStaticSource(member("a", 0), member("b", 0))
		assert.Equal(t, []int64{1, 2}, []int64{s.Members()[0].Age, s.Members()[1].Age})
	})

	t.Run("keeps configured ages", func(t *testing.T) {
		s := NewStaticSource(member("a", 3), member("b", 1))
		assert.Equal(t, int64(3), s.Members()[0].Age)
	})

	t.Run("watch emits members then closes on cancel", func(t *testing.T) {
		s := NewStaticSource(member("a", 3), member("b", 1), member("c", 2))
		ctx, cancel := context.WithCancel(context.Background())
		events, err := s.Watch(ctx)
		require.NoError(t, err)

		r := NewRegistry()
		for range 3 {
			r.Apply(ctx, <-events)
		}
		leader, ok := r.LeaderOf(RoleAll)
		require.True(t, ok)
		assert.Equal(t, "b", leader.Address)

		cancel()
		select {
		case _, open := <-events:
			assert.False(t, open)
		case <-time.After(time.Second):
			t.Fatal("events not closed")
		}
	})
}

func TestNewEtcdSource_Validation(t *testing.T) {
	_, err := NewEtcdSource(nil, member("a", 0))
	assert.ErrorIs(t, err, ErrNilClient)
}
