package xetcd

import (
	"context"
	"fmt"
	"math"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// KeyValue 带版本信息的键值。
type KeyValue struct {
	Key   string
	Value []byte

	// CreateRevision 键创建时的集群版本号，同一键删除重建后会变化。
	// 成员注册以它作为加入顺序。
	CreateRevision int64

	// ModRevision 最后一次修改的版本号，用于比较交换。
	ModRevision int64

	// Lease 绑定的租约，0 表示无租约。
	Lease int64
}

// GetOption Get 选项。
type GetOption func(*[]clientv3.OpOption)

// WithSerializable 从本地成员读取，不经过 leader 的线性一致确认，可能读到旧值。
func WithSerializable() GetOption {
	return func(ops *[]clientv3.OpOption) {
		*ops = append(*ops, clientv3.WithSerializable())
	}
}

// Get 获取键值，键不存在返回 ErrKeyNotFound。默认线性一致读。
func (c *Client) Get(ctx context.Context, key string, opts ...GetOption) (KeyValue, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return KeyValue{}, err
	}

	var ops []clientv3.OpOption
	for _, opt := range opts {
		opt(&ops)
	}
	resp, err := c.client.Get(ctx, key, ops...)
	if err != nil {
		return KeyValue{}, fmt.Errorf("xetcd: get %q: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return KeyValue{}, ErrKeyNotFound
	}
	kv := resp.Kvs[0]
	return KeyValue{
		Key:            string(kv.Key),
		Value:          kv.Value,
		CreateRevision: kv.CreateRevision,
		ModRevision:    kv.ModRevision,
		Lease:          kv.Lease,
	}, nil
}

// Put 写入键值。
func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	if err := c.checkKey(ctx, key); err != nil {
		return err
	}
	if _, err := c.client.Put(ctx, key, string(value)); err != nil {
		return fmt.Errorf("xetcd: put %q: %w", key, err)
	}
	return nil
}

// PutWithTTL 写入带 TTL 的键值。ttl <= 0 时退化为 Put。
// TTL 向上取整到秒，键不会早于调用方预期过期。
func (c *Client) PutWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.checkKey(ctx, key); err != nil {
		return err
	}
	if ttl <= 0 {
		return c.Put(ctx, key, value)
	}

	lease, err := c.client.Grant(ctx, ttlSeconds(ttl))
	if err != nil {
		return fmt.Errorf("xetcd: grant lease: %w", err)
	}
	if _, err := c.client.Put(ctx, key, string(value), clientv3.WithLease(lease.ID)); err != nil {
		c.tryRevokeLease(lease.ID)
		return fmt.Errorf("xetcd: put %q with ttl: %w", key, err)
	}
	return nil
}

// Delete 删除键值，键不存在时不返回错误。
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.checkKey(ctx, key); err != nil {
		return err
	}
	if _, err := c.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("xetcd: delete %q: %w", key, err)
	}
	return nil
}

// List 按键升序列出前缀下的所有键值，同时返回读取时的集群版本号，
// 可作为 Watch 的起点（WithRevision(rev+1)）。
//
// 一次性加载到内存，不适用于前缀下有大量 key 的场景。
func (c *Client) List(ctx context.Context, prefix string) ([]KeyValue, int64, error) {
	if err := c.checkKey(ctx, prefix); err != nil {
		return nil, 0, err
	}

	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, 0, fmt.Errorf("xetcd: list %q: %w", prefix, err)
	}

	out := make([]KeyValue, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, KeyValue{
			Key:            string(kv.Key),
			Value:          kv.Value,
			CreateRevision: kv.CreateRevision,
			ModRevision:    kv.ModRevision,
			Lease:          kv.Lease,
		})
	}
	var rev int64
	if resp.Header != nil {
		rev = resp.Header.Revision
	}
	return out, rev, nil
}

// CompareAndPut 当键的 ModRevision 等于 expectRev 时写入。
// expectRev 为 0 表示要求键不存在。返回是否写入成功。
func (c *Client) CompareAndPut(ctx context.Context, key string, value []byte, expectRev int64) (bool, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return false, err
	}

	resp, err := c.client.Txn(ctx).
		If(revisionCompare(key, expectRev)).
		Then(clientv3.OpPut(key, string(value))).
		Commit()
	if err != nil {
		return false, fmt.Errorf("xetcd: compare-and-put %q: %w", key, err)
	}
	return resp.Succeeded, nil
}

// CompareAndDelete 当键的 ModRevision 等于 expectRev 时删除。
func (c *Client) CompareAndDelete(ctx context.Context, key string, expectRev int64) (bool, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return false, err
	}

	resp, err := c.client.Txn(ctx).
		If(revisionCompare(key, expectRev)).
		Then(clientv3.OpDelete(key)).
		Commit()
	if err != nil {
		return false, fmt.Errorf("xetcd: compare-and-delete %q: %w", key, err)
	}
	return resp.Succeeded, nil
}

// AcquireTTL 当键不存在或当前值等于 value 时，以新的 ttl 租约写入 value。
// 返回是否写入。用于以 value 标识持有者的可重入租约锁。
func (c *Client) AcquireTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	lease, err := c.client.Grant(ctx, ttlSeconds(ttl))
	if err != nil {
		return false, fmt.Errorf("xetcd: grant lease: %w", err)
	}
	put := clientv3.OpPut(key, string(value), clientv3.WithLease(lease.ID))

	// 键不存在时直接写入，否则在嵌套事务中比较持有者
	resp, err := c.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(put).
		Else(clientv3.OpTxn(
			[]clientv3.Cmp{clientv3.Compare(clientv3.Value(key), "=", string(value))},
			[]clientv3.Op{put},
			nil,
		)).
		Commit()
	if err != nil {
		c.tryRevokeLease(lease.ID)
		return false, fmt.Errorf("xetcd: acquire %q: %w", key, err)
	}

	ok := resp.Succeeded || nestedSucceeded(resp)
	if !ok {
		c.tryRevokeLease(lease.ID)
	}
	return ok, nil
}

// ReleaseIfValue 当前值等于 value 时删除键，返回是否删除。
func (c *Client) ReleaseIfValue(ctx context.Context, key string, value []byte) (bool, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return false, err
	}

	resp, err := c.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", string(value))).
		Then(clientv3.OpDelete(key)).
		Commit()
	if err != nil {
		return false, fmt.Errorf("xetcd: release %q: %w", key, err)
	}
	return resp.Succeeded, nil
}

func nestedSucceeded(resp *clientv3.TxnResponse) bool {
	if len(resp.Responses) == 0 {
		return false
	}
	txn := resp.Responses[0].GetResponseTxn()
	return txn != nil && txn.Succeeded
}

func revisionCompare(key string, expectRev int64) clientv3.Cmp {
	if expectRev == 0 {
		return clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
	}
	return clientv3.Compare(clientv3.ModRevision(key), "=", expectRev)
}

func (c *Client) checkKey(ctx context.Context, key string) error {
	if err := c.checkPreconditions(ctx); err != nil {
		return err
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

func ttlSeconds(ttl time.Duration) int64 {
	return max(int64(math.Ceil(ttl.Seconds())), 1)
}

// revokeLeaseTimeout 撤销租约的超时。租约最终会自动过期，撤销只是提前清理。
const revokeLeaseTimeout = 3 * time.Second

// tryRevokeLease 尝试撤销租约，失败时静默，租约会自动过期。
func (c *Client) tryRevokeLease(leaseID clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), revokeLeaseTimeout)
	defer cancel()
	_, _ = c.client.Revoke(ctx, leaseID) //nolint:errcheck // best-effort
}
