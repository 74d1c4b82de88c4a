package xdlock

import (
	"context"
	"strings"
	"time"

	"github.com/omeyang/xtick/pkg/observability/xmetrics"
)

// Locker 以持有者标识的可重入 TTL 锁。
//
// 同一 owner 对已持有的锁再次 TryLock 会刷新过期时间并返回 true。
// 返回 false 且 err 为 nil 表示锁当前由其他持有者占用（或无法确认持有）。
type Locker interface {
	// TryLock 尝试以 owner 身份持有 key，持有时长 ttl。
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Unlock 释放 owner 持有的 key。返回 true 表示确认已释放。
	Unlock(ctx context.Context, key, owner string) (bool, error)
}

// 编译期接口检查。
var (
	_ Locker = (*Weak)(nil)
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*EtcdLocker)(nil)
)

func validateLock(key, owner string, ttl time.Duration) error {
	if err := validateUnlock(key, owner); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

func validateUnlock(key, owner string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if owner == "" {
		return ErrEmptyOwner
	}
	return nil
}

// observe 以统一的组件名记录锁操作，acquired 写入结果属性。
func observe(ctx context.Context, obs xmetrics.Observer, backend, op, key string, fn func(ctx context.Context) (bool, error)) (bool, error) {
	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
		Component: "xdlock",
		Operation: op,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String("backend", backend),
			xmetrics.String("key", key),
		},
	})
	ok, err := fn(ctx)
	span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Bool("ok", ok)}})
	return ok, err
}
