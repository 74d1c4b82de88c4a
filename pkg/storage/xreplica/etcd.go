package xreplica

import (
	"context"
	"errors"
	"fmt"

	"github.com/omeyang/xtick/pkg/storage/xetcd"
)

// EtcdBackend 将值集合编码为 JSON 数组存入 etcd。
//
// LevelLocal 读使用 serializable 读，其它级别为线性一致读；写入总是经过 raft 多数派。
// Update 以 ModRevision 做比较交换。
type EtcdBackend struct {
	client   *xetcd.Client
	attempts uint
}

var _ Backend = (*EtcdBackend)(nil)

// NewEtcdBackend 创建 etcd 后端，键位于 client 前缀下的 "replica/"。
func NewEtcdBackend(client *xetcd.Client) (*EtcdBackend, error) {
	if client == nil {
		return nil, ErrNilBackend
	}
	return &EtcdBackend{client: client, attempts: defaultCASAttempts}, nil
}

func (b *EtcdBackend) key(k string) string {
	return b.client.Key("replica", k)
}

// get 返回值集合与 ModRevision，键不存在时 revision 为 0。
func (b *EtcdBackend) get(ctx context.Context, key string, level Level) ([]string, int64, error) {
	var opts []xetcd.GetOption
	if level == LevelLocal {
		opts = append(opts, xetcd.WithSerializable())
	}
	kv, err := b.client.Get(ctx, b.key(key), opts...)
	if errors.Is(err, xetcd.ErrKeyNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	values, err := decodeValues(kv.Value)
	if err != nil {
		return nil, 0, err
	}
	return values, kv.ModRevision, nil
}

func (b *EtcdBackend) Get(ctx context.Context, key string, level Level) ([]string, error) {
	values, _, err := b.get(ctx, key, level)
	if err != nil {
		return nil, fmt.Errorf("xreplica/etcd: get %q: %w", key, err)
	}
	return values, nil
}

func (b *EtcdBackend) Put(ctx context.Context, key, value string, _ Level) error {
	data, err := encodeValues([]string{value})
	if err != nil {
		return err
	}
	if err := b.client.Put(ctx, b.key(key), data); err != nil {
		return fmt.Errorf("xreplica/etcd: put %q: %w", key, err)
	}
	return nil
}

func (b *EtcdBackend) Delete(ctx context.Context, key string, _ Level) error {
	if err := b.client.Delete(ctx, b.key(key)); err != nil {
		return fmt.Errorf("xreplica/etcd: delete %q: %w", key, err)
	}
	return nil
}

func (b *EtcdBackend) Update(ctx context.Context, key string, _ Level, modify ModifyFunc) error {
	k := b.key(key)
	err := retryConflicts(ctx, b.attempts, func() error {
		current, rev, err := b.get(ctx, key, LevelMajority)
		if err != nil {
			return err
		}
		next, changed := modify(current)
		if !changed {
			return nil
		}

		var ok bool
		if next = normalize(next); len(next) == 0 {
			if rev == 0 {
				return nil
			}
			ok, err = b.client.CompareAndDelete(ctx, k, rev)
		} else {
			var data []byte
			if data, err = encodeValues(next); err != nil {
				return err
			}
			ok, err = b.client.CompareAndPut(ctx, k, data, rev)
		}
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("xreplica/etcd: update %q: %w", key, err)
	}
	return nil
}

// Close 不关闭共享的 xetcd.Client。
func (b *EtcdBackend) Close() error { return nil }
