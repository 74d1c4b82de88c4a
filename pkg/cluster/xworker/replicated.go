package xworker

import (
	"context"
	"fmt"
	"time"

	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/distributed/xdlock"
	"github.com/omeyang/xtick/pkg/storage/xreplica"
)

// 复制状态的约定。
const (
	// MarkerKey last-fired 标记的键，命名空间为任务名。
	MarkerKey = "last-tick"
	// DefaultLockTTL 单例锁的租期，需长于任务的最长执行时间。
	DefaultLockTTL = 60 * time.Second
)

// ReplicatedState 集群共享状态：last-fired 存放在 xreplica.Map，锁由 xdlock.Locker 提供。
type ReplicatedState struct {
	m       *xreplica.Map
	locker  xdlock.Locker
	lockKey string
	ttl     time.Duration
	read    xreplica.Consistency
}

var _ StateBackend = (*ReplicatedState)(nil)

// ReplicatedOption ReplicatedState 选项。
type ReplicatedOption func(*ReplicatedState)

// WithLocker 替换默认的弱锁，例如 xdlock.RedisLocker 或 xdlock.EtcdLocker。
func WithLocker(l xdlock.Locker) ReplicatedOption {
	return func(s *ReplicatedState) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLockTTL 设置锁租期。
func WithLockTTL(ttl time.Duration) ReplicatedOption {
	return func(s *ReplicatedState) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithReadConsistency 设置读取 last-fired 的一致性。
func WithReadConsistency(c xreplica.Consistency) ReplicatedOption {
	return func(s *ReplicatedState) {
		if c.Timeout > 0 {
			s.read = c
		}
	}
}

// NewReplicatedState 在 m 上创建单例状态，锁键为 "<命名空间>-lock"。
// 未指定 Locker 时在同一个 Map 上使用 xdlock.Weak。
func NewReplicatedState(m *xreplica.Map, opts ...ReplicatedOption) (*ReplicatedState, error) {
	if m == nil {
		return nil, ErrNilMap
	}
	s := &ReplicatedState{
		m:       m,
		lockKey: Spec{Name: m.Namespace()}.LockKey(),
		ttl:     DefaultLockTTL,
		read:    xreplica.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		weak, err := xdlock.NewWeak(m)
		if err != nil {
			return nil, err
		}
		s.locker = weak
	}
	return s, nil
}

// LockKey 返回锁键。
func (s *ReplicatedState) LockKey() string {
	return s.lockKey
}

// LastFired 实现 StateBackend。
//
// 并发写入可能留下多个值，取时间戳最大的那个；无法解析的值被忽略。
func (s *ReplicatedState) LastFired(ctx context.Context) (xtick.Tick, bool, error) {
	res := s.m.GetWith(ctx, MarkerKey, s.read)
	if res.Err != nil {
		return xtick.Tick{}, false, fmt.Errorf("xworker: read marker: %w", res.Err)
	}
	var (
		latest xtick.Tick
		found  bool
	)
	for _, v := range res.Values {
		t, err := xtick.DecodeTick([]byte(v))
		if err != nil {
			continue
		}
		if !found || t.TimestampMs > latest.TimestampMs {
			latest, found = t, true
		}
	}
	return latest, found, nil
}

// SetLastFired 实现 StateBackend。写入异步生效，只报告提交失败。
func (s *ReplicatedState) SetLastFired(ctx context.Context, t xtick.Tick) error {
	data, err := t.Encode()
	if err != nil {
		return fmt.Errorf("xworker: encode marker: %w", err)
	}
	if _, err := s.m.Put(ctx, MarkerKey, string(data)); err != nil {
		return fmt.Errorf("xworker: write marker: %w", err)
	}
	return nil
}

// Acquire 实现 StateBackend。
func (s *ReplicatedState) Acquire(ctx context.Context, runID string) (bool, error) {
	if runID == "" {
		return false, ErrEmptyRunID
	}
	return s.locker.TryLock(ctx, s.lockKey, runID, s.ttl)
}

// Release 实现 StateBackend。锁已过期或被接管时返回 ErrLockNotHeld。
func (s *ReplicatedState) Release(ctx context.Context, runID string) error {
	released, err := s.locker.Unlock(ctx, s.lockKey, runID)
	if err != nil {
		return err
	}
	if !released {
		return ErrLockNotHeld
	}
	return nil
}
