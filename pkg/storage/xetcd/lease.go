package xetcd

import (
	"context"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Registration 一个绑定租约并自动续约的键。
//
// 续约失败（租约过期、连接断开超过 TTL）时 Done() 关闭，Err() 返回 ErrLeaseLost，
// 此时键已被 etcd 删除，调用方需要重新 Register。
type Registration struct {
	client  *Client
	key     string
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// Register 以 ttl 租约写入键值，并在后台持续续约直到 Revoke 或 Client 关闭。
func (c *Client) Register(ctx context.Context, key string, value []byte, ttl time.Duration) (*Registration, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return nil, err
	}
	if ttl < time.Second {
		return nil, ErrInvalidTTL
	}

	lease, err := c.client.Grant(ctx, ttlSeconds(ttl))
	if err != nil {
		return nil, fmt.Errorf("xetcd: grant lease: %w", err)
	}
	if _, err := c.client.Put(ctx, key, string(value), clientv3.WithLease(lease.ID)); err != nil {
		c.tryRevokeLease(lease.ID)
		return nil, fmt.Errorf("xetcd: register %q: %w", key, err)
	}

	// 续约的生命周期独立于调用方 ctx，由 Revoke / Close 控制
	kaCtx, cancel := context.WithCancel(context.Background())
	ch, err := c.client.KeepAlive(kaCtx, lease.ID)
	if err != nil {
		cancel()
		c.tryRevokeLease(lease.ID)
		return nil, fmt.Errorf("xetcd: keepalive %q: %w", key, err)
	}

	r := &Registration{
		client:  c,
		key:     key,
		leaseID: lease.ID,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.bgWg.Go(func() {
		r.keepAlive(kaCtx, ch)
	})
	return r, nil
}

func (r *Registration) keepAlive(ctx context.Context, ch <-chan *clientv3.LeaseKeepAliveResponse) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.client.closeCh:
			r.cancel()
			return
		case _, ok := <-ch:
			if !ok {
				if ctx.Err() == nil {
					r.setErr(ErrLeaseLost)
				}
				return
			}
		}
	}
}

func (r *Registration) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Key 返回注册的键。
func (r *Registration) Key() string { return r.key }

// LeaseID 返回租约 ID。
func (r *Registration) LeaseID() int64 { return int64(r.leaseID) }

// Done 续约停止时关闭。
func (r *Registration) Done() <-chan struct{} { return r.done }

// Err 续约丢失时返回 ErrLeaseLost，主动撤销返回 nil。
func (r *Registration) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Revoke 停止续约并撤销租约，键随之删除。
func (r *Registration) Revoke(ctx context.Context) error {
	r.cancel()
	<-r.done
	if r.client.isClosed() {
		return nil
	}
	if _, err := r.client.client.Revoke(ctx, r.leaseID); err != nil {
		return fmt.Errorf("xetcd: revoke lease for %q: %w", r.key, err)
	}
	return nil
}
