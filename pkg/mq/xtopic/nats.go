package xtopic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
)

// NATSRouter 基于 NATS 核心发布订阅的路由器。
//
// 普通消息发往 "<prefix>all.<topic>"，组消息发往 "<prefix>group.<topic>"，
// 组订阅使用以组名命名的队列订阅，由 NATS 在组内随机选取一个成员。
// 连接由调用方管理，Close 不关闭连接。
type NATSRouter struct {
	nc   *nats.Conn
	opts options

	mu     sync.Mutex
	closed bool
	subs   map[*natsSub]struct{}
}

// NewNATSRouter 在已有连接上创建路由器。
func NewNATSRouter(nc *nats.Conn, opts ...Option) (*NATSRouter, error) {
	if nc == nil {
		return nil, ErrNilConn
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &NATSRouter{nc: nc, opts: o, subs: make(map[*natsSub]struct{})}, nil
}

// Connect 以无限重连方式连接 NATS。name 用于在服务端标识连接。
func Connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("xtopic: connect %s: %w", url, err)
	}
	return nc, nil
}

func (r *NATSRouter) subject(topic string, onePerGroup bool) string {
	if onePerGroup {
		return r.opts.prefix + "group." + topic
	}
	return r.opts.prefix + "all." + topic
}

// Publish 发布到对应受众的主题。
func (r *NATSRouter) Publish(ctx context.Context, topic string, payload []byte, onePerGroup bool) error {
	if err := validateTopic(topic); err != nil {
		return err
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return xmetrics.Observe(ctx, r.opts.observer, publishSpan("nats", topic, onePerGroup), func(context.Context) error {
		if err := r.nc.Publish(r.subject(topic, onePerGroup), payload); err != nil {
			return fmt.Errorf("xtopic: publish %s: %w", topic, err)
		}
		return nil
	})
}

// Subscribe 订阅主题。NATS 对每个订阅串行回调，保证订阅内顺序。
func (r *NATSRouter) Subscribe(ctx context.Context, topic, group string, h Handler) (Subscription, error) {
	if err := validateTopic(topic); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	s := &natsSub{router: r, topic: topic, group: group}
	cb := func(m *nats.Msg) {
		deliver(ctx, r.opts, "nats", h, Message{Topic: topic, Group: group, Payload: m.Data})
	}

	var err error
	if group == "" {
		s.sub, err = r.nc.Subscribe(r.subject(topic, false), cb)
	} else {
		s.sub, err = r.nc.QueueSubscribe(r.subject(topic, true), group, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("xtopic: subscribe %s: %w", topic, err)
	}

	r.subs[s] = struct{}{}
	s.stop = context.AfterFunc(ctx, func() { _ = s.Unsubscribe() })
	return s, nil
}

// Close 取消本路由器创建的全部订阅。
func (r *NATSRouter) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*natsSub, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range subs {
		errs = append(errs, s.Unsubscribe())
	}
	return errors.Join(errs...)
}

type natsSub struct {
	router *NATSRouter
	topic  string
	group  string
	sub    *nats.Subscription
	stop   func() bool
	once   sync.Once
	err    error
}

func (s *natsSub) Topic() string { return s.topic }
func (s *natsSub) Group() string { return s.group }

func (s *natsSub) Unsubscribe() error {
	s.once.Do(func() {
		// stop 在 Subscribe 持锁期间赋值
		s.router.mu.Lock()
		stop := s.stop
		delete(s.router.subs, s)
		s.router.mu.Unlock()
		if stop != nil {
			stop()
		}

		err := s.sub.Unsubscribe()
		if err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			s.err = fmt.Errorf("xtopic: unsubscribe %s: %w", s.topic, err)
			s.router.opts.logger.Warn(context.Background(), "unsubscribe failed",
				xlog.Component("xtopic"), xlog.Topic(s.topic), xlog.Group(s.group), xlog.Err(err))
		}
	})
	return s.err
}
