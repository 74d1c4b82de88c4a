package xetcd

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/omeyang/xtick/pkg/resilience/xretry"
)

// EventType 事件类型。
type EventType int

const (
	// EventPut 写入事件。
	EventPut EventType = iota
	// EventDelete 删除事件。
	EventDelete
	// EventUnknown 未知事件类型，防止未来新增类型被静默当作 EventPut。
	EventUnknown EventType = -1
)

// String 返回事件类型的字符串表示。
func (e EventType) String() string {
	switch e {
	case EventPut:
		return "PUT"
	case EventDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", e)
	}
}

// Event Watch 事件。
type Event struct {
	Type  EventType
	Key   string
	Value []byte // Delete 事件时为 nil

	// CreateRevision 键的创建版本，Delete 事件时为 0。
	CreateRevision int64

	// Revision 事件的修改版本。错误事件中为最后成功处理的版本，
	// 可用 WithRevision(Revision+1) 恢复。
	Revision int64

	// CompactRevision 错误由 compaction 引起时非零。
	CompactRevision int64

	// Error 非 nil 表示 Watch 失败，随后通道关闭。
	Error error
}

// DefaultWatchBufferSize 默认事件通道缓冲区大小。
const DefaultWatchBufferSize = 256

type watchOptions struct {
	prefix     bool
	revision   int64
	bufferSize int
}

// WatchOption Watch 选项函数。
type WatchOption func(*watchOptions)

// WithPrefix 监听前缀下所有键的变化。
func WithPrefix() WatchOption {
	return func(o *watchOptions) {
		o.prefix = true
	}
}

// WithRevision 从指定版本开始 Watch。
func WithRevision(rev int64) WatchOption {
	return func(o *watchOptions) {
		o.revision = rev
	}
}

// WithBufferSize 设置事件通道缓冲区大小。
func WithBufferSize(size int) WatchOption {
	return func(o *watchOptions) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

func applyWatchOptions(opts []WatchOption) *watchOptions {
	o := &watchOptions{bufferSize: DefaultWatchBufferSize}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Watch 监听键值变化，ctx 取消或客户端关闭时关闭通道。
//
// 本方法不自动重连：失败时发送一个错误事件后关闭通道。
// 需要自动重连请使用 WatchWithRetry。
func (c *Client) Watch(ctx context.Context, key string, opts ...WatchOption) (<-chan Event, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return nil, err
	}

	o := applyWatchOptions(opts)
	var etcdOpts []clientv3.OpOption
	if o.prefix {
		etcdOpts = append(etcdOpts, clientv3.WithPrefix())
	}
	if o.revision > 0 {
		etcdOpts = append(etcdOpts, clientv3.WithRev(o.revision))
	}

	eventCh := make(chan Event, o.bufferSize)
	c.bgWg.Go(func() {
		c.runWatchLoop(ctx, key, etcdOpts, eventCh)
	})
	return eventCh, nil
}

func (c *Client) runWatchLoop(ctx context.Context, key string, etcdOpts []clientv3.OpOption, eventCh chan<- Event) {
	defer close(eventCh)

	// 独立的可取消 ctx，Close 时同时结束底层 watch 流
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchCh := c.client.Watch(watchCtx, key, etcdOpts...)

	var lastRevision int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case resp, ok := <-watchCh:
			if !ok {
				return
			}
			if err := resp.Err(); err != nil {
				c.send(ctx, eventCh, Event{Error: err, Revision: lastRevision, CompactRevision: resp.CompactRevision})
				return
			}
			for _, ev := range resp.Events {
				event := convertEvent(ev)
				if !c.send(ctx, eventCh, event) {
					return
				}
				if event.Error == nil {
					lastRevision = event.Revision
				}
			}
		}
	}
}

// send 返回 false 表示 ctx 取消或客户端关闭。
func (c *Client) send(ctx context.Context, eventCh chan<- Event, event Event) bool {
	select {
	case eventCh <- event:
		return true
	case <-ctx.Done():
		return false
	case <-c.closeCh:
		return false
	}
}

// convertEvent 将 etcd 事件转换为 xetcd 事件。ev.Kv 为 nil 时返回错误事件而非 panic。
func convertEvent(ev *clientv3.Event) Event {
	if ev.Kv == nil {
		return Event{Type: EventUnknown, Error: errNilKv}
	}

	event := Event{
		Key:      string(ev.Kv.Key),
		Revision: ev.Kv.ModRevision,
	}
	switch ev.Type {
	case mvccpb.PUT:
		event.Type = EventPut
		event.Value = ev.Kv.Value
		event.CreateRevision = ev.Kv.CreateRevision
	case mvccpb.DELETE:
		event.Type = EventDelete
	default:
		event.Type = EventUnknown
		event.Value = ev.Kv.Value
	}
	return event
}

// =============================================================================
// WatchWithRetry 自动重连支持
// =============================================================================

// RetryConfig Watch 重连配置。
type RetryConfig struct {
	// Backoff 连续失败时的退避，零值字段取 xretry 的默认值。
	Backoff xretry.ExponentialBackoff `koanf:"backoff"`

	// MaxRetries 最大连续重连次数，0 表示无限。
	MaxRetries int `koanf:"max_retries"`

	// OnRetry 每次重连前在内部 goroutine 中调用。
	OnRetry func(attempt int, err error, wait time.Duration, lastRevision int64) `koanf:"-"`
}

// DefaultRetryConfig 1 秒起步、30 秒封顶、±20% 抖动，集群重启后客户端不会同时重连。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Backoff: xretry.ExponentialBackoff{Initial: time.Second, Max: 30 * time.Second, Jitter: 0.2},
	}
}

// WatchWithRetry 带指数退避自动重连的 Watch，重连时从最后成功的版本恢复。
// 通道仅在 ctx 取消、客户端关闭或重试耗尽（最后发送 ErrMaxRetriesExceeded）时关闭。
func (c *Client) WatchWithRetry(ctx context.Context, key string, cfg RetryConfig, opts ...WatchOption) (<-chan Event, error) {
	if err := c.checkKey(ctx, key); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max_retries %d", ErrInvalidRetryConfig, cfg.MaxRetries)
	}

	eventCh := make(chan Event, applyWatchOptions(opts).bufferSize)
	c.bgWg.Go(func() {
		c.runWatchWithRetry(ctx, key, cfg, opts, eventCh)
	})
	return eventCh, nil
}

func (c *Client) runWatchWithRetry(ctx context.Context, key string, cfg RetryConfig, opts []WatchOption, eventCh chan<- Event) {
	defer close(eventCh)

	var (
		lastRevision int64
		compactRev   int64
		attempt      int
	)
	for {
		watchOpts := append([]WatchOption(nil), opts...)
		// compaction 后从 max(lastRevision+1, compactRev) 恢复
		if start := max(lastRevision+1, compactRev); start > 1 {
			watchOpts = append(watchOpts, WithRevision(start))
		}

		inner, err := c.Watch(ctx, key, watchOpts...)
		if err != nil {
			return
		}

		var cause error
		consumed := false
		for event := range inner {
			if event.Error != nil {
				cause = event.Error
				compactRev = event.CompactRevision
				break
			}
			consumed = true
			lastRevision = event.Revision
			if !c.send(ctx, eventCh, event) {
				return
			}
		}
		if ctx.Err() != nil || c.isClosed() {
			return
		}
		if consumed {
			attempt = 0
		}
		if cause == nil {
			cause = ErrWatchDisconnected
		}

		attempt++
		if cfg.MaxRetries > 0 && attempt > cfg.MaxRetries {
			c.send(ctx, eventCh, Event{Error: ErrMaxRetriesExceeded, Revision: lastRevision})
			return
		}
		wait := cfg.Backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, cause, wait, lastRevision)
		}
		if !c.sleep(ctx, wait) {
			return
		}
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.closeCh:
		return false
	case <-timer.C:
		return true
	}
}
