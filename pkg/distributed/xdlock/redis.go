package xdlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	rsredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// RedisLocker 基于 redsync 的 Redis 锁。
//
// 锁值即持有者标识，同一 owner 可以续期和释放，实现可重入。
// 传入多个独立 Redis 节点时使用 Redlock 多数派算法。
type RedisLocker struct {
	rs   *redsync.Redsync
	opts options
}

// NewRedisLocker 创建 Redis 锁。clients 为独立的 Redis 节点。
func NewRedisLocker(clients []redis.UniversalClient, opts ...Option) (*RedisLocker, error) {
	if len(clients) == 0 {
		return nil, ErrNilClient
	}
	pools := make([]rsredis.Pool, 0, len(clients))
	for _, c := range clients {
		if c == nil {
			return nil, ErrNilClient
		}
		pools = append(pools, goredis.NewPool(c))
	}
	return &RedisLocker{rs: redsync.New(pools...), opts: applyOptions(opts)}, nil
}

// Redsync 返回底层 redsync 实例，用于直接使用其完整 API。
func (l *RedisLocker) Redsync() *redsync.Redsync {
	return l.rs
}

func (l *RedisLocker) mutex(key, owner string, ttl time.Duration) *redsync.Mutex {
	ownerValue := func() (string, error) { return owner, nil }
	rsOpts := []redsync.Option{
		redsync.WithTries(1),
		redsync.WithValue(owner),
		redsync.WithGenValueFunc(ownerValue),
	}
	if ttl > 0 {
		rsOpts = append(rsOpts, redsync.WithExpiry(ttl))
	}
	return l.rs.NewMutex(l.opts.prefix+key, rsOpts...)
}

// TryLock 尝试以 owner 身份持有 key。
//
// 设计决策: 先按值续期再 SET NX。若先 SET NX，失败路径上 redsync 会按同一个值
// 执行释放脚本，可能误删本持有者已有的锁。
func (l *RedisLocker) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if err := validateLock(key, owner, ttl); err != nil {
		return false, err
	}
	return observe(ctx, l.opts.observer, "redis", "try_lock", key, func(ctx context.Context) (bool, error) {
		m := l.mutex(key, owner, ttl)
		if ok, err := m.ExtendContext(ctx); ok && err == nil {
			return true, nil
		}

		err := m.TryLockContext(ctx)
		if err == nil {
			return true, nil
		}
		if isContention(err) {
			return false, nil
		}
		l.opts.logger.Warn(ctx, "redis lock failed", xlog.Component("xdlock"), xlog.Key(key), xlog.Err(err))
		return false, wrapRedisError(err)
	})
}

// Unlock 释放 owner 持有的 key。锁已过期或属于他人时返回 false。
func (l *RedisLocker) Unlock(ctx context.Context, key, owner string) (bool, error) {
	if err := validateUnlock(key, owner); err != nil {
		return false, err
	}
	return observe(ctx, l.opts.observer, "redis", "unlock", key, func(ctx context.Context) (bool, error) {
		ok, err := l.mutex(key, owner, 0).UnlockContext(ctx)
		if err != nil {
			if isContention(err) {
				return false, nil
			}
			return false, wrapRedisError(err)
		}
		return ok, nil
	})
}

// isContention 锁被占用或已过期，属于正常竞争结果而非故障。
func isContention(err error) bool {
	var taken *redsync.ErrTaken
	return errors.As(err, &taken) ||
		errors.Is(err, redsync.ErrFailed) ||
		errors.Is(err, redsync.ErrExtendFailed) ||
		errors.Is(err, redsync.ErrLockAlreadyExpired)
}

// wrapRedisError 将 redsync 错误转换为 xdlock 错误，保留原始错误链。
func wrapRedisError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrLockFailed, err)
}
