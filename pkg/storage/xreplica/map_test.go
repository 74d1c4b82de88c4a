package xreplica

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtick/pkg/util/xid"
)

func testIDs(t *testing.T) *xid.Generator {
	t.Helper()
	g, err := xid.NewGenerator(xid.WithMachineID(func() (uint16, error) { return 7, nil }))
	require.NoError(t, err)
	return g
}

func newTestMap(t *testing.T, backend Backend, opts ...Option) *Map {
	t.Helper()
	opts = append([]Option{WithIDGenerator(testIDs(t))}, opts...)
	m, err := New(backend, "ns", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

// gateBackend 在 Get/Put 上阻塞直到 release 关闭或 ctx 到期。
type gateBackend struct {
	*MemoryBackend
	entered chan struct{}
	release chan struct{}
}

func newGateBackend() *gateBackend {
	return &gateBackend{
		MemoryBackend: NewMemoryBackend(),
		entered:       make(chan struct{}, 16),
		release:       make(chan struct{}),
	}
}

func (b *gateBackend) wait(ctx context.Context) error {
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *gateBackend) Get(ctx context.Context, key string, level Level) ([]string, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return b.MemoryBackend.Get(ctx, key, level)
}

func (b *gateBackend) Put(ctx context.Context, key, value string, level Level) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	return b.MemoryBackend.Put(ctx, key, value, level)
}

// failBackend 总是返回 err。
type failBackend struct {
	*MemoryBackend
	err error
}

func (b *failBackend) Get(context.Context, string, Level) ([]string, error) {
	return nil, b.err
}

// =============================================================================
// 构造
// =============================================================================

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "ns")
	assert.ErrorIs(t, err, ErrNilBackend)

	_, err = New(NewMemoryBackend(), "")
	assert.ErrorIs(t, err, ErrEmptyNamespace)
}

// =============================================================================
// 读写顺序
// =============================================================================

func TestMap_ReadsObservePriorWrites(t *testing.T) {
	ctx := context.Background()
	m := newTestMap(t, NewMemoryBackend())

	tag, err := m.Put(ctx, "k", "v1")
	require.NoError(t, err)
	assert.Equal(t, "k", tag.Key)
	assert.NotZero(t, tag.ID)

	res := m.Get(ctx, "k", time.Second)
	require.NoError(t, res.Err)
	assert.True(t, res.Found)
	v, ok := res.Single()
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	_, err = m.Add(ctx, "k", "v2")
	require.NoError(t, err)
	res = m.Get(ctx, "k", time.Second)
	assert.Equal(t, []string{"v1", "v2"}, res.Values)
	assert.True(t, res.Contains("v2"))
	_, ok = res.Single()
	assert.False(t, ok)

	_, err = m.Delete(ctx, "k")
	require.NoError(t, err)
	res = m.Get(ctx, "k", time.Second)
	require.NoError(t, res.Err)
	assert.False(t, res.Found)
	assert.True(t, res.Empty())
}

func TestMap_Update(t *testing.T) {
	ctx := context.Background()
	m := newTestMap(t, NewMemoryBackend())

	_, err := m.Update(ctx, "k", Lock(), func(cur []string) ([]string, bool) {
		assert.Empty(t, cur)
		return []string{"b", "a", "a"}, true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.GetWith(ctx, "k", Lock()).Values)

	_, err = m.Update(ctx, "k", Consistency{}, func(cur []string) ([]string, bool) {
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Get(ctx, "k", 0).Values, "unchanged modify keeps values")

	_, err = m.Update(ctx, "k", Default(), func([]string) ([]string, bool) { return nil, true })
	require.NoError(t, err)
	assert.False(t, m.Get(ctx, "k", 0).Found, "empty result deletes the key")

	_, err = m.Update(ctx, "k", Default(), nil)
	assert.ErrorIs(t, err, ErrNilModify)
}

func TestMap_WriteHookInIssueOrder(t *testing.T) {
	ctx := context.Background()
	var (
		mu   sync.Mutex
		tags []Tag
	)
	m := newTestMap(t, NewMemoryBackend(), WithWriteHook(func(tag Tag, err error) {
		assert.NoError(t, err)
		mu.Lock()
		tags = append(tags, tag)
		mu.Unlock()
	}))

	var want []Tag
	for _, key := range []string{"a", "b", "c", "a"} {
		tag, err := m.Put(ctx, key, "v")
		require.NoError(t, err)
		want = append(want, tag)
	}
	require.NoError(t, m.Close(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, tags)
}

func TestMap_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	a := newTestMap(t, backend)
	b, err := New(backend, "other", WithIDGenerator(testIDs(t)))
	require.NoError(t, err)
	defer func() { _ = b.Close(ctx) }()

	_, err = a.Put(ctx, "last-tick", "1")
	require.NoError(t, err)
	assert.False(t, b.Get(ctx, "last-tick", time.Second).Found)
	assert.Equal(t, []string{"ns/last-tick"}, backend.Keys())
	assert.Equal(t, "other", b.Namespace())
}

// =============================================================================
// 超时、队列与熔断
// =============================================================================

func TestMap_GetTimeout(t *testing.T) {
	ctx := context.Background()
	backend := newGateBackend()
	m := newTestMap(t, backend)

	start := time.Now()
	res := m.Get(ctx, "k", 50*time.Millisecond)
	assert.ErrorIs(t, res.Err, ErrTimeout)
	assert.False(t, res.Found)
	assert.Less(t, time.Since(start), time.Second)
}

func TestMap_GetContextCanceled(t *testing.T) {
	backend := newGateBackend()
	m := newTestMap(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-backend.entered
		cancel()
	}()
	res := m.Get(ctx, "k", 5*time.Second)
	assert.ErrorIs(t, res.Err, context.Canceled)
	close(backend.release)
}

func TestMap_QueueFull(t *testing.T) {
	ctx := context.Background()
	backend := newGateBackend()
	m := newTestMap(t, backend, WithQueueSize(1))

	_, err := m.Put(ctx, "k", "1")
	require.NoError(t, err)
	<-backend.entered // 第一个请求已被循环取走

	_, err = m.Put(ctx, "k", "2")
	require.NoError(t, err)
	_, err = m.Put(ctx, "k", "3")
	assert.ErrorIs(t, err, ErrQueueFull)

	close(backend.release)
}

func TestMap_BreakerOpens(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	m := newTestMap(t, &failBackend{MemoryBackend: NewMemoryBackend(), err: boom}, WithBreaker(2, time.Minute))

	assert.ErrorIs(t, m.Get(ctx, "k", time.Second).Err, boom)
	assert.ErrorIs(t, m.Get(ctx, "k", time.Second).Err, boom)
	assert.ErrorIs(t, m.Get(ctx, "k", time.Second).Err, ErrBackendUnavailable)
}

func TestMap_Close(t *testing.T) {
	ctx := context.Background()
	m := newTestMap(t, NewMemoryBackend())

	require.NoError(t, m.Close(ctx))
	require.NoError(t, m.Close(ctx))

	_, err := m.Put(ctx, "k", "v")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Get(ctx, "k", time.Second).Err, ErrClosed)

	_, err = m.Put(ctx, "", "v")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestMap_CloseDeadline(t *testing.T) {
	backend := newGateBackend()
	m := newTestMap(t, backend)

	_, err := m.Put(context.Background(), "k", "v")
	require.NoError(t, err)
	<-backend.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Close(ctx), context.DeadlineExceeded)
	close(backend.release)
}

// =============================================================================
// 辅助类型
// =============================================================================

func TestLevel(t *testing.T) {
	for s, want := range map[string]Level{"local": LevelLocal, "Majority": LevelMajority, "ALL": LevelAll} {
		l, err := ParseLevel(s)
		require.NoError(t, err)
		assert.Equal(t, want, l)
	}
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelMajority, l)

	var lv Level
	require.NoError(t, lv.UnmarshalText([]byte("all")))
	assert.Equal(t, LevelAll, lv)
	assert.Error(t, lv.UnmarshalText([]byte("quorum")))
	assert.Equal(t, "Level(9)", Level(9).String())

	assert.Equal(t, 5*time.Second, Default().Timeout)
	assert.Equal(t, 10*time.Second, Lock().Timeout)
}

func TestCodec(t *testing.T) {
	data, err := encodeValues([]string{"b", "a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	values, err := decodeValues(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values)

	_, err = decodeValues([]byte("{"))
	assert.ErrorIs(t, err, ErrInvalidValue)

	values, err = decodeValues(nil)
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestRetryConflicts(t *testing.T) {
	calls := 0
	err := retryConflicts(context.Background(), 3, func() error {
		calls++
		if calls < 3 {
			return ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	other := errors.New("fatal")
	err = retryConflicts(context.Background(), 3, func() error {
		calls++
		return other
	})
	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, calls, "non-conflict errors are not retried")

	err = retryConflicts(context.Background(), 2, func() error { return ErrConflict })
	assert.ErrorIs(t, err, ErrConflict)
}

func TestKVKey(t *testing.T) {
	assert.Equal(t, "sample-singleton/last-tick", kvKey("sample-singleton/last-tick"))
	assert.Equal(t, "a_b_c", kvKey("a:b c"))
}
