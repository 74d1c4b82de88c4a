package xtopic

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
)

// LocalRouter 进程内路由器。
//
// 每个订阅有独立的有界队列和投递 goroutine，慢订阅者不会阻塞发布方或其他订阅者。
type LocalRouter struct {
	opts options

	mu     sync.RWMutex
	closed bool
	subs   map[string][]*localSub
	wg     sync.WaitGroup
}

// NewLocalRouter 创建进程内路由器。
func NewLocalRouter(opts ...Option) *LocalRouter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &LocalRouter{opts: o, subs: make(map[string][]*localSub)}
}

// Publish 按受众规则把消息放入订阅队列。不等待处理完成。
func (r *LocalRouter) Publish(ctx context.Context, topic string, payload []byte, onePerGroup bool) error {
	if err := validateTopic(topic); err != nil {
		return err
	}
	return xmetrics.Observe(ctx, r.opts.observer, publishSpan("local", topic, onePerGroup), func(ctx context.Context) error {
		r.mu.RLock()
		defer r.mu.RUnlock()
		if r.closed {
			return ErrClosed
		}

		subs := r.subs[topic]
		if !onePerGroup {
			for _, s := range subs {
				if s.group == "" {
					s.enqueue(ctx, Message{Topic: topic, Payload: payload})
				}
			}
			return nil
		}

		groups := make(map[string][]*localSub)
		for _, s := range subs {
			if s.group != "" {
				groups[s.group] = append(groups[s.group], s)
			}
		}
		for group, members := range groups {
			members[rand.IntN(len(members))].enqueue(ctx, Message{Topic: topic, Group: group, Payload: payload})
		}
		return nil
	})
}

// Subscribe 注册订阅并启动其投递 goroutine。
func (r *LocalRouter) Subscribe(ctx context.Context, topic, group string, h Handler) (Subscription, error) {
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

	subCtx, cancel := context.WithCancel(ctx)
	s := &localSub{
		router:  r,
		topic:   topic,
		group:   group,
		handler: h,
		ch:      make(chan Message, r.opts.queueSize),
		ctx:     subCtx,
		cancel:  cancel,
	}
	r.subs[topic] = append(r.subs[topic], s)
	r.wg.Go(s.run)
	return s, nil
}

// Close 取消全部订阅并等待投递 goroutine 退出。
// 不能在 Handler 内调用。
func (r *LocalRouter) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	var all []*localSub
	for _, subs := range r.subs {
		all = append(all, subs...)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.cancel()
	}
	r.wg.Wait()
	return nil
}

func (r *LocalRouter) remove(s *localSub) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := slices.DeleteFunc(r.subs[s.topic], func(x *localSub) bool { return x == s })
	if len(subs) == 0 {
		delete(r.subs, s.topic)
		return
	}
	r.subs[s.topic] = subs
}

type localSub struct {
	router  *LocalRouter
	topic   string
	group   string
	handler Handler
	ch      chan Message
	ctx     context.Context
	cancel  context.CancelFunc
}

func (s *localSub) Topic() string { return s.topic }
func (s *localSub) Group() string { return s.group }

// Unsubscribe 立即停止接收新消息，已入队的消息被丢弃。
func (s *localSub) Unsubscribe() error {
	s.cancel()
	s.router.remove(s)
	return nil
}

func (s *localSub) enqueue(ctx context.Context, msg Message) {
	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.ch <- msg:
	default:
		s.router.opts.logger.Warn(ctx, "subscriber queue full, message dropped",
			xlog.Component("xtopic"), xlog.Topic(s.topic), xlog.Group(s.group))
	}
}

func (s *localSub) run() {
	defer s.router.remove(s)
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.ch:
			if s.ctx.Err() != nil {
				return
			}
			deliver(s.ctx, s.router.opts, "local", s.handler, msg)
		}
	}
}

// deliver 调用 Handler，panic 被捕获并记录，不影响后续投递。
func deliver(ctx context.Context, o options, transport string, h Handler, msg Message) {
	ctx, span := xmetrics.Start(ctx, o.observer, xmetrics.SpanOptions{
		Component: "xtopic",
		Operation: "deliver",
		Kind:      xmetrics.KindConsumer,
		Attrs: []xmetrics.Attr{
			xmetrics.String("transport", transport),
			xmetrics.String("topic", msg.Topic),
			xmetrics.String("group", msg.Group),
		},
	})
	var status xmetrics.Status
	defer func() {
		if p := recover(); p != nil {
			status = xmetrics.StatusError
			o.logger.Error(ctx, "subscriber panicked",
				xlog.Component("xtopic"), xlog.Topic(msg.Topic), xlog.Group(msg.Group), slog.Any("panic", p))
		}
		span.End(xmetrics.Result{Status: status})
	}()
	h(ctx, msg)
}

func publishSpan(transport, topic string, onePerGroup bool) xmetrics.SpanOptions {
	return xmetrics.SpanOptions{
		Component: "xtopic",
		Operation: "publish",
		Kind:      xmetrics.KindProducer,
		Attrs: []xmetrics.Attr{
			xmetrics.String("transport", transport),
			xmetrics.String("topic", topic),
			xmetrics.Bool("one_per_group", onePerGroup),
		},
	}
}
