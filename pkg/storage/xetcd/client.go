package xetcd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// etcdClient 是 Client 用到的 clientv3 方法子集，测试中由 gomock 替换。
type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
	Close() error
}

var _ etcdClient = (*clientv3.Client)(nil)

// Client etcd 客户端封装，并发安全。
type Client struct {
	client    etcdClient
	rawClient *clientv3.Client
	config    *Config
	closed    atomic.Bool
	closeCh   chan struct{} // 通知 Watch / 续约 goroutine 退出
	bgWg      sync.WaitGroup
}

// NewClient 创建 etcd 客户端。
//
// 错误：
//   - ErrNilConfig: config 为 nil
//   - ErrNoEndpoints / ErrInvalidEndpoint: 配置非法
//   - 连接错误，或 HealthCheck 开启时读取 <prefix>health 失败
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &options{ctx: context.Background()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	cfg := config.applyDefaults()

	// 设计决策: keepalive 仅通过 DialOptions 设置，避免与 Config 字段两处取值不一致，
	// 且只有显式 DialOptions 能控制 PermitWithoutStream。
	clientConfig := clientv3.Config{
		Endpoints:        cfg.Endpoints,
		DialTimeout:      cfg.DialTimeout,
		Username:         cfg.Username,
		Password:         cfg.Password,
		RejectOldCluster: cfg.RejectOldCluster,
		TLS:              o.tlsConfig,
		DialOptions: append([]grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                cfg.DialKeepAliveTime,
				Timeout:             cfg.DialKeepAliveTimeout,
				PermitWithoutStream: cfg.PermitWithoutStream,
			}),
		}, o.dialOptions...),
	}

	rawClient, err := clientv3.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("xetcd: create client: %w", err)
	}

	// 健康检查 key 位于前缀之下，前缀授权（RBAC）的账号也能读
	if cfg.HealthCheck {
		ctx, cancel := context.WithTimeout(o.ctx, cfg.HealthCheckTimeout)
		defer cancel()
		if _, err := rawClient.Get(ctx, cfg.Prefix+"health"); err != nil {
			return nil, errors.Join(
				fmt.Errorf("xetcd: health check failed: %w", err),
				rawClient.Close(),
			)
		}
	}

	c := newClient(rawClient, cfg)
	c.rawClient = rawClient
	return c, nil
}

func newClient(ec etcdClient, cfg *Config) *Client {
	return &Client{
		client:  ec,
		config:  cfg,
		closeCh: make(chan struct{}),
	}
}

// RawClient 返回原生 etcd 客户端，用于会话、事务等高级操作。
func (c *Client) RawClient() *clientv3.Client {
	return c.rawClient
}

// Prefix 返回配置的键前缀，以 "/" 结尾。
func (c *Client) Prefix() string {
	return c.config.Prefix
}

// Key 将相对键拼接到配置前缀下。
func (c *Client) Key(parts ...string) string {
	key := c.config.Prefix
	for i, p := range parts {
		if i > 0 {
			key += "/"
		}
		key += p
	}
	return key
}

// Close 关闭客户端并等待后台 goroutine 退出。重复调用返回 nil。
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.closeCh)
	c.bgWg.Wait()
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) isClosed() bool {
	return c.closed.Load()
}

// checkPreconditions 检查 context 与客户端状态。
func (c *Client) checkPreconditions(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if c.isClosed() {
		return ErrClientClosed
	}
	return ctx.Err()
}
