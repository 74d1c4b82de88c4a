package xworker

import (
	"context"
	"sync/atomic"

	"github.com/omeyang/xtick/pkg/cluster/xtick"
)

//go:generate mockgen -source=state.go -destination=mock_state_test.go -package=xworker

// StateBackend worker 的 last-fired 标记与执行锁的存放位置。
//
// 引擎只通过这个接口区分普通与单例 worker。
type StateBackend interface {
	// LastFired 返回最近一次触发执行的 tick，不存在时 ok 为 false。
	LastFired(ctx context.Context) (t xtick.Tick, ok bool, err error)
	// SetLastFired 记录触发执行的 tick。
	SetLastFired(ctx context.Context, t xtick.Tick) error
	// Acquire 以 runID 获取执行锁，同一 runID 可重入。
	Acquire(ctx context.Context, runID string) (bool, error)
	// Release 释放 runID 持有的锁。
	Release(ctx context.Context, runID string) error
}

// LocalState 进程内状态：原子的单槽锁与 last-fired 标记。
type LocalState struct {
	last  atomic.Pointer[xtick.Tick]
	owner atomic.Pointer[string]
}

var _ StateBackend = (*LocalState)(nil)

// NewLocalState 创建空的进程内状态。
func NewLocalState() *LocalState {
	return &LocalState{}
}

// LastFired 实现 StateBackend。
func (s *LocalState) LastFired(context.Context) (xtick.Tick, bool, error) {
	t := s.last.Load()
	if t == nil {
		return xtick.Tick{}, false, nil
	}
	return *t, true, nil
}

// SetLastFired 实现 StateBackend。
func (s *LocalState) SetLastFired(_ context.Context, t xtick.Tick) error {
	s.last.Store(&t)
	return nil
}

// Acquire 实现 StateBackend。槽位空闲或已被 runID 持有时成功。
func (s *LocalState) Acquire(_ context.Context, runID string) (bool, error) {
	if runID == "" {
		return false, ErrEmptyRunID
	}
	if cur := s.owner.Load(); cur != nil {
		return *cur == runID, nil
	}
	return s.owner.CompareAndSwap(nil, &runID), nil
}

// Release 实现 StateBackend。槽位不属于 runID 时返回 ErrLockNotHeld。
func (s *LocalState) Release(_ context.Context, runID string) error {
	cur := s.owner.Load()
	if cur == nil || *cur != runID || !s.owner.CompareAndSwap(cur, nil) {
		return ErrLockNotHeld
	}
	return nil
}

// Holder 返回当前持有者，空闲时为空串。
func (s *LocalState) Holder() string {
	if cur := s.owner.Load(); cur != nil {
		return *cur
	}
	return ""
}
