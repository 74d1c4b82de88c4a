package xdlock

import (
	"context"
	"time"

	"github.com/omeyang/xtick/pkg/storage/xetcd"
)

// EtcdLocker 基于 etcd 租约的锁。
//
// 锁键绑定 TTL 租约，值为持有者标识；加锁和释放都在事务中比较持有者，
// 持有者崩溃后键随租约过期自动删除。
type EtcdLocker struct {
	client *xetcd.Client
	opts   options
}

// NewEtcdLocker 创建 etcd 锁，键位于 client 前缀下的 "lock/" 目录。
func NewEtcdLocker(client *xetcd.Client, opts ...Option) (*EtcdLocker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &EtcdLocker{client: client, opts: applyOptions(opts)}, nil
}

func (l *EtcdLocker) key(k string) string {
	return l.client.Key("lock", k)
}

// TryLock 尝试以 owner 身份持有 key。同一 owner 重复加锁会换绑新租约以刷新 TTL。
func (l *EtcdLocker) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if err := validateLock(key, owner, ttl); err != nil {
		return false, err
	}
	return observe(ctx, l.opts.observer, "etcd", "try_lock", key, func(ctx context.Context) (bool, error) {
		return l.client.AcquireTTL(ctx, l.key(key), []byte(owner), ttl)
	})
}

// Unlock 释放 owner 持有的 key。
func (l *EtcdLocker) Unlock(ctx context.Context, key, owner string) (bool, error) {
	if err := validateUnlock(key, owner); err != nil {
		return false, err
	}
	return observe(ctx, l.opts.observer, "etcd", "unlock", key, func(ctx context.Context) (bool, error) {
		return l.client.ReleaseIfValue(ctx, l.key(key), []byte(owner))
	})
}
