package xtick

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtick/pkg/cluster/xmember"
	"github.com/omeyang/xtick/pkg/mq/xtopic"
)

// msgSink 收集路由投递的消息。
type msgSink struct {
	mu   sync.Mutex
	msgs []xtopic.Message
}

func (s *msgSink) handle(_ context.Context, msg xtopic.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *msgSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func (s *msgSink) ticks(t *testing.T) []Tick {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tick, 0, len(s.msgs))
	for _, m := range s.msgs {
		tk, err := DecodeTick(m.Payload)
		require.NoError(t, err)
		out = append(out, tk)
	}
	return out
}

// blockingRouter 的 Publish 阻塞到 release 关闭。
type blockingRouter struct {
	release   chan struct{}
	published atomic.Int32
}

func (r *blockingRouter) Publish(ctx context.Context, _ string, _ []byte, _ bool) error {
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.published.Add(1)
	return nil
}

func (r *blockingRouter) Subscribe(context.Context, string, string, xtopic.Handler) (xtopic.Subscription, error) {
	return nil, nil
}

func (r *blockingRouter) Close() error { return nil }

func member(addr string, age int64) xmember.Member {
	return xmember.Member{Address: addr, Age: age}
}

func newTestRouter(t *testing.T) *xtopic.LocalRouter {
	t.Helper()
	r := xtopic.NewLocalRouter()
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func newTestCoordinator(t *testing.T, self xmember.Member, router xtopic.Router, members ...xmember.Member) *Coordinator {
	t.Helper()
	reg := xmember.NewRegistry()
	for _, m := range members {
		reg.AddMember(m)
	}
	c, err := NewCoordinator(self, reg, router, newIDs(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

// =============================================================================
// Coordinator
// =============================================================================

func TestNewCoordinator_Validation(t *testing.T) {
	reg := xmember.NewRegistry()
	r := newTestRouter(t)
	ids := newIDs(t)

	_, err := NewCoordinator(xmember.Member{}, reg, r, ids)
	assert.ErrorIs(t, err, ErrEmptySelf)
	_, err = NewCoordinator(member("a", 1), nil, r, ids)
	assert.ErrorIs(t, err, ErrNilRegistry)
	_, err = NewCoordinator(member("a", 1), reg, nil, ids)
	assert.ErrorIs(t, err, ErrNilRouter)
	_, err = NewCoordinator(member("a", 1), reg, r, nil)
	assert.ErrorIs(t, err, ErrNilIDGenerator)
}

func TestCoordinator_LeaderPublishesFreshTick(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t)
	single, all := &msgSink{}, &msgSink{}
	_, err := r.Subscribe(ctx, TopicTick, "job", single.handle)
	require.NoError(t, err)
	_, err = r.Subscribe(ctx, TopicTickAll, "", all.handle)
	require.NoError(t, err)

	self := member("node-a", 1)
	c := newTestCoordinator(t, self, r, self, member("node-b", 2))

	local := Tick{ID: "local-1", TimestampMs: 1, Tags: map[string]any{}}
	c.OnTick(ctx, local)
	require.NoError(t, c.Close(ctx))

	require.Eventually(t, func() bool { return single.len() == 1 && all.len() == 1 }, time.Second, 5*time.Millisecond)
	got := single.ticks(t)[0]
	assert.NotEqual(t, local.ID, got.ID, "leader publishes a new tick")
	assert.NotEqual(t, local.TimestampMs, got.TimestampMs)
	assert.Equal(t, "node-a", got.Sender())
	assert.Equal(t, got, all.ticks(t)[0])
}

func TestCoordinator_NonLeaderDrops(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t)
	all := &msgSink{}
	_, err := r.Subscribe(ctx, TopicTickAll, "", all.handle)
	require.NoError(t, err)

	self := member("node-b", 2)
	c := newTestCoordinator(t, self, r, member("node-a", 1), self)
	c.OnTick(ctx, Tick{ID: "t"})
	require.NoError(t, c.Close(ctx))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, all.len())
	assert.False(t, c.busy.Load(), "non-leader releases the slot")
}

func TestCoordinator_NoMembersDrops(t *testing.T) {
	br := &blockingRouter{release: make(chan struct{})}
	close(br.release)
	c := newTestCoordinator(t, member("node-a", 1), br)

	c.OnTick(context.Background(), Tick{ID: "t"})
	require.NoError(t, c.Close(context.Background()))
	assert.Zero(t, br.published.Load())
}

func TestCoordinator_BusyDrops(t *testing.T) {
	ctx := context.Background()
	br := &blockingRouter{release: make(chan struct{})}
	self := member("node-a", 1)
	c := newTestCoordinator(t, self, br, self)

	c.OnTick(ctx, Tick{ID: "1"})
	require.Eventually(t, c.busy.Load, time.Second, time.Millisecond)
	c.OnTick(ctx, Tick{ID: "2"})
	c.OnTick(ctx, Tick{ID: "3"})

	close(br.release)
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, int32(2), br.published.Load(), "only the first tick is published to both topics")
	assert.False(t, c.busy.Load())

	c.OnTick(ctx, Tick{ID: "4"})
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, int32(4), br.published.Load())
}

func TestCoordinator_CloseHonorsContext(t *testing.T) {
	br := &blockingRouter{release: make(chan struct{})}
	self := member("node-a", 1)
	c := newTestCoordinator(t, self, br, self)
	c.OnTick(context.Background(), Tick{ID: "1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Close(ctx), context.DeadlineExceeded)
	close(br.release)
}

func TestCoordinator_FollowsMembershipEvents(t *testing.T) {
	ctx := context.Background()
	br := &blockingRouter{release: make(chan struct{})}
	close(br.release)
	self := member("node-b", 2)
	c := newTestCoordinator(t, self, br)

	events := make(chan xmember.Event, 2)
	events <- xmember.Event{Type: xmember.EventMemberUp, Member: member("node-a", 1)}
	events <- xmember.Event{Type: xmember.EventMemberUp, Member: self}
	close(events)
	c.Run(ctx, events)

	c.OnTick(ctx, Tick{ID: "1"})
	require.NoError(t, c.Close(ctx))
	assert.Zero(t, br.published.Load())

	c.Apply(ctx, xmember.Event{Type: xmember.EventMemberRemoved, Member: member("node-a", 1)})
	assert.True(t, c.Registry().IsLeader(xmember.RoleAll, self))
	c.OnTick(ctx, Tick{ID: "2"})
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, int32(2), br.published.Load())
}

// =============================================================================
// 三节点端到端
// =============================================================================

func TestCluster_SingletonFiresOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t)
	nodes := []xmember.Member{member("node-1", 3), member("node-2", 1), member("node-3", 2)}

	singleton := make([]*msgSink, len(nodes))
	broadcast := make([]*msgSink, len(nodes))
	coords := make([]*Coordinator, len(nodes))
	for i, n := range nodes {
		singleton[i], broadcast[i] = &msgSink{}, &msgSink{}
		_, err := r.Subscribe(ctx, TopicTick, "report-job", singleton[i].handle)
		require.NoError(t, err)
		_, err = r.Subscribe(ctx, TopicTickAll, "", broadcast[i].handle)
		require.NoError(t, err)
		coords[i] = newTestCoordinator(t, n, r, nodes...)
	}

	// 每个节点的本地 Generator 在同一周期各产生一个 tick。
	for i, c := range coords {
		c.OnTick(ctx, Tick{ID: "local-" + nodes[i].Address})
	}
	for _, c := range coords {
		require.NoError(t, c.Close(ctx))
	}

	require.Eventually(t, func() bool {
		total := 0
		for _, s := range singleton {
			total += s.len()
		}
		return total == 1
	}, time.Second, 5*time.Millisecond)
	for _, s := range broadcast {
		require.Eventually(t, func() bool { return s.len() == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, "node-2", s.ticks(t)[0].Sender(), "the member with age 1 leads")
	}

	time.Sleep(50 * time.Millisecond)
	total := 0
	for _, s := range singleton {
		total += s.len()
	}
	assert.Equal(t, 1, total)
}
