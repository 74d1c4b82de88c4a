package xworker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/distributed/xcron"
	"github.com/omeyang/xtick/pkg/mq/xtopic"
)

// tickChan 把投递的 tick 写入通道。
func tickChan() (chan xtick.Tick, xtick.Handler) {
	ch := make(chan xtick.Tick, 8)
	return ch, func(_ context.Context, t xtick.Tick) { ch <- t }
}

func recv(t *testing.T, ch <-chan xtick.Tick) xtick.Tick {
	t.Helper()
	select {
	case tk := <-ch:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("no tick delivered")
		return xtick.Tick{}
	}
}

func TestRouterSource(t *testing.T) {
	ctx := context.Background()
	r := xtopic.NewLocalRouter()
	t.Cleanup(func() { _ = r.Close() })
	src, err := NewRouterSource(r, nil)
	require.NoError(t, err)

	singleCh, single := tickChan()
	allCh, all := tickChan()
	_, err = src.Subscribe(ctx, Spec{Name: "sample-singleton", Singleton: true}, single)
	require.NoError(t, err)
	_, err = src.Subscribe(ctx, Spec{Name: "sample-all-roles"}, all)
	require.NoError(t, err)

	payload, err := tickAt("t10", base).Encode()
	require.NoError(t, err)
	require.NoError(t, r.Publish(ctx, xtick.TopicTick, payload, true))
	require.NoError(t, r.Publish(ctx, xtick.TopicTickAll, payload, false))

	assert.Equal(t, "t10", recv(t, singleCh).ID)
	assert.Equal(t, "t10", recv(t, allCh).ID)

	// 无法解析的消息被丢弃，后续消息照常投递。
	require.NoError(t, r.Publish(ctx, xtick.TopicTickAll, []byte("{"), false))
	payload, err = tickAt("t15", base.Add(5*time.Second)).Encode()
	require.NoError(t, err)
	require.NoError(t, r.Publish(ctx, xtick.TopicTickAll, payload, false))
	assert.Equal(t, "t15", recv(t, allCh).ID)
	assert.Empty(t, singleCh)
}

func TestNewRouterSource_Nil(t *testing.T) {
	_, err := NewRouterSource(nil, nil)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestGeneratorSource(t *testing.T) {
	_, err := NewGeneratorSource(nil)
	assert.ErrorIs(t, err, ErrNilSource)

	gen, err := xtick.NewGenerator(newIDs(t), xtick.WithInitialDelay(0), xtick.WithPeriod(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gen.Stop(context.Background()) })
	src, err := NewGeneratorSource(gen)
	require.NoError(t, err)

	_, err = src.Subscribe(context.Background(), Spec{Name: "s", Singleton: true}, func(context.Context, xtick.Tick) {})
	assert.ErrorIs(t, err, ErrSingletonLocal)

	ch, h := tickChan()
	sub, err := src.Subscribe(context.Background(), Spec{Name: "sample-per-10-secs"}, h)
	require.NoError(t, err)
	require.NoError(t, gen.Start())
	assert.NotEmpty(t, recv(t, ch).ID)
	require.NoError(t, sub.Unsubscribe())
}

func TestWorker_LocalModeEndToEnd(t *testing.T) {
	gen, err := xtick.NewGenerator(newIDs(t), xtick.WithInitialDelay(0), xtick.WithPeriod(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gen.Stop(context.Background()) })
	src, err := NewGeneratorSource(gen)
	require.NoError(t, err)

	job := &jobRecorder{}
	w, err := New(Spec{Name: "sample-local", Schedule: xcron.MustParse("* * *")}, job, NewLocalState(), newDispatcher(t), newIDs(t))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), src, nil))
	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	require.NoError(t, gen.Start())
	require.Eventually(t, func() bool { return job.count() >= 1 }, 3*time.Second, 5*time.Millisecond)
}
