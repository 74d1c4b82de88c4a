package xtick

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xtick/pkg/cluster/xmember"
	"github.com/omeyang/xtick/pkg/mq/xtopic"
	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/util/xid"
)

// Coordinator 相关错误。
var (
	ErrNilRegistry = errors.New("xtick: registry is nil")
	ErrNilRouter   = errors.New("xtick: router is nil")
	ErrEmptySelf   = errors.New("xtick: self address is empty")
)

// Coordinator 只让 RoleAll 的领导者把本地 tick 转发到集群主题。
//
// 每个节点都运行 Generator 和 Coordinator，非领导者的 tick 被静默丢弃，
// 领导者变更时新的领导者在下一个周期自然接管。
type Coordinator struct {
	self     xmember.Member
	registry *xmember.Registry
	router   xtopic.Router
	ids      *xid.Generator
	opts     options

	// busy 单槽标志，同一时刻最多一次发布在途。
	busy atomic.Bool
	wg   sync.WaitGroup
}

// NewCoordinator 创建 Coordinator。self 是本节点在成员视图中的身份。
func NewCoordinator(self xmember.Member, registry *xmember.Registry, router xtopic.Router,
	ids *xid.Generator, opts ...Option) (*Coordinator, error) {
	switch {
	case self.Address == "":
		return nil, ErrEmptySelf
	case registry == nil:
		return nil, ErrNilRegistry
	case router == nil:
		return nil, ErrNilRouter
	case ids == nil:
		return nil, ErrNilIDGenerator
	}
	o := applyOptions(opts)
	if o.sender == "" {
		o.sender = self.Address
	}
	return &Coordinator{self: self, registry: registry, router: router, ids: ids, opts: o}, nil
}

// Registry 返回 Coordinator 维护的成员视图。
func (c *Coordinator) Registry() *xmember.Registry {
	return c.registry
}

// Apply 应用一个成员事件。
func (c *Coordinator) Apply(ctx context.Context, ev xmember.Event) {
	c.registry.Apply(ctx, ev)
}

// Run 持续消费成员事件直到通道关闭或 ctx 取消。
func (c *Coordinator) Run(ctx context.Context, events <-chan xmember.Event) {
	c.registry.Run(ctx, events)
}

// OnTick 处理一个本地 tick，签名与 Handler 一致。
func (c *Coordinator) OnTick(ctx context.Context, t Tick) {
	leader, ok := c.registry.LeaderOf(xmember.RoleAll)
	if !ok {
		c.opts.logger.Warn(ctx, "no cluster members, tick dropped",
			xlog.Component("xtick"), xlog.TickID(t.ID))
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.opts.logger.Warn(ctx, "previous publish in flight, tick dropped",
			xlog.Component("xtick"), xlog.TickID(t.ID))
		return
	}
	if leader.Address != c.self.Address {
		c.busy.Store(false)
		return
	}

	c.wg.Go(func() {
		defer c.busy.Store(false)
		if err := c.publish(context.WithoutCancel(ctx)); err != nil {
			c.opts.logger.Error(ctx, "publish tick failed", xlog.Component("xtick"),
				xlog.TickID(t.ID), xlog.Err(err))
		}
	})
}

// publish 生成新 tick 并分别发往 TICK（每组一份）与 TICK-ALL（广播）。
func (c *Coordinator) publish(ctx context.Context) (err error) {
	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: "xtick",
		Operation: "publish",
		Kind:      xmetrics.KindProducer,
		Attrs:     []xmetrics.Attr{xmetrics.String("node", c.self.Address)},
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	t, err := NewTick(c.ids, c.opts.now(), c.opts.sender)
	if err != nil {
		return err
	}
	payload, err := t.Encode()
	if err != nil {
		return fmt.Errorf("xtick: encode tick: %w", err)
	}
	ctx = xlog.WithTick(ctx, t.ID)
	return errors.Join(
		c.router.Publish(ctx, TopicTick, payload, true),
		c.router.Publish(ctx, TopicTickAll, payload, false),
	)
}

// Close 等待在途发布完成，ctx 到期时返回 ctx.Err()。
func (c *Coordinator) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
