package xdlock

import (
	"context"
	"fmt"
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/storage/xreplica"
)

// Weak 基于复制 Map 的弱分布式锁。
//
// 锁的状态只存在于 Map 中，Weak 本身无状态，可被多个 goroutine 共享。
type Weak struct {
	m    *xreplica.Map
	opts options
}

// NewWeak 创建弱锁。m 的命名空间即锁的作用域。
func NewWeak(m *xreplica.Map, opts ...Option) (*Weak, error) {
	if m == nil {
		return nil, ErrNilMap
	}
	return &Weak{m: m, opts: applyOptions(opts)}, nil
}

// TryLock 尝试以 owner 身份持有 key。
//
// 写入是即发即弃的，结果以随后的锁一致性读取为准：读到本次写入的记录才返回 true。
// 读取超时或后端错误时返回 false 和错误。
func (w *Weak) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if err := validateLock(key, owner, ttl); err != nil {
		return false, err
	}
	return observe(ctx, w.opts.observer, "weak", "try_lock", key, func(ctx context.Context) (bool, error) {
		rec := NewRecord(owner, w.opts.now(), ttl).Encode()
		if _, err := w.m.Update(ctx, key, w.opts.consistency, func(cur []string) ([]string, bool) {
			if claimable(cur, owner, w.opts.now()) {
				return []string{rec}, true
			}
			return cur, false
		}); err != nil {
			return false, fmt.Errorf("xdlock: submit lock %q: %w", key, err)
		}

		res := w.m.GetWith(ctx, key, w.opts.consistency)
		if res.Err != nil {
			w.opts.logger.Debug(ctx, "lock read failed",
				xlog.Component("xdlock"), xlog.Key(key), xlog.Err(res.Err))
			return false, fmt.Errorf("xdlock: read lock %q: %w", key, res.Err)
		}
		return res.Contains(rec), nil
	})
}

// Unlock 释放 owner 持有的 key。
//
// 仅当值集合中有 owner 的记录或全部记录已过期时删除键；
// 随后读取确认键已不存在才返回 true。
func (w *Weak) Unlock(ctx context.Context, key, owner string) (bool, error) {
	if err := validateUnlock(key, owner); err != nil {
		return false, err
	}
	return observe(ctx, w.opts.observer, "weak", "unlock", key, func(ctx context.Context) (bool, error) {
		if _, err := w.m.Update(ctx, key, w.opts.consistency, func(cur []string) ([]string, bool) {
			if len(cur) > 0 && claimable(cur, owner, w.opts.now()) {
				return nil, true
			}
			return cur, false
		}); err != nil {
			return false, fmt.Errorf("xdlock: submit unlock %q: %w", key, err)
		}

		res := w.m.GetWith(ctx, key, w.opts.consistency)
		if res.Err != nil {
			return false, fmt.Errorf("xdlock: read lock %q: %w", key, res.Err)
		}
		return res.Empty(), nil
	})
}

// Holders 返回 key 当前的持有记录（含已过期的），用于诊断。
func (w *Weak) Holders(ctx context.Context, key string) ([]Record, error) {
	res := w.m.GetWith(ctx, key, w.opts.consistency)
	if res.Err != nil {
		return nil, res.Err
	}
	return decodeRecords(res.Values), nil
}
