package xtick

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/util/xid"
)

// 生命周期错误。
var (
	ErrNilHandler     = errors.New("xtick: handler is nil")
	ErrAlreadyStarted = errors.New("xtick: generator already started")
	ErrStopped        = errors.New("xtick: generator stopped")
)

// Handler 接收 tick。在发射 goroutine 中同步调用，必须快速返回。
type Handler func(ctx context.Context, t Tick)

// Subscription 本地 tick 订阅。
type Subscription interface {
	Unsubscribe() error
}

// Generator 本地周期 tick 源。
type Generator struct {
	ids  *xid.Generator
	opts options
	cron *cron.Cron

	mu      sync.RWMutex
	subs    map[uint64]Handler
	nextSub uint64
	state   int // 0 未启动，1 运行中，2 已停止
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewGenerator 创建 Generator。
func NewGenerator(ids *xid.Generator, opts ...Option) (*Generator, error) {
	if ids == nil {
		return nil, ErrNilIDGenerator
	}
	o := applyOptions(opts)
	logger := cronLogger{log: func(msg string, err error, kv []any) {
		attrs := []slog.Attr{xlog.Component("xtick"), slog.Group("cron", kv...)}
		if err != nil {
			o.logger.Error(context.Background(), msg, append(attrs, xlog.Err(err))...)
			return
		}
		o.logger.Debug(context.Background(), msg, attrs...)
	}}

	ctx, cancel := context.WithCancel(context.Background())
	return &Generator{
		ids:  ids,
		opts: o,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		subs:   make(map[uint64]Handler),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Subscribe 注册本地订阅者。ctx 取消时自动退订。
func (g *Generator) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == 2 {
		return nil, ErrStopped
	}
	g.nextSub++
	id := g.nextSub
	g.subs[id] = h

	s := &localSub{g: g, id: id}
	s.stop = context.AfterFunc(ctx, func() { _ = s.Unsubscribe() })
	return s, nil
}

// Start 在初始延迟后开始周期发射。
func (g *Generator) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case 1:
		return ErrAlreadyStarted
	case 2:
		return ErrStopped
	}
	g.state = 1

	first := g.opts.now().Add(g.opts.initialDelay)
	g.cron.Schedule(delaySchedule{first: first, period: g.opts.period}, cron.FuncJob(g.emit))
	g.cron.Start()
	g.opts.logger.Info(g.ctx, "tick generator started", xlog.Component("xtick"),
		slog.Duration("initial_delay", g.opts.initialDelay), slog.Duration("period", g.opts.period))
	return nil
}

// Stop 停止定时器并等待正在进行的发射结束，ctx 到期时返回 ctx.Err()。
func (g *Generator) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.state == 2 {
		g.mu.Unlock()
		return nil
	}
	started := g.state == 1
	g.state = 2
	g.mu.Unlock()

	g.cancel()
	if !started {
		return nil
	}
	select {
	case <-g.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emit 生成一个 tick 并广播给所有订阅者。
func (g *Generator) emit() {
	t, err := NewTick(g.ids, g.opts.now(), g.opts.sender)
	if err != nil {
		g.opts.logger.Error(g.ctx, "create tick failed", xlog.Component("xtick"), xlog.Err(err))
		return
	}

	g.mu.RLock()
	handlers := make([]Handler, 0, len(g.subs))
	for _, h := range g.subs {
		handlers = append(handlers, h)
	}
	g.mu.RUnlock()

	ctx := xlog.WithTick(g.ctx, t.ID)
	for _, h := range handlers {
		g.deliver(ctx, h, t.clone())
	}
}

func (g *Generator) deliver(ctx context.Context, h Handler, t Tick) {
	defer func() {
		if p := recover(); p != nil {
			g.opts.logger.Error(ctx, "tick subscriber panicked", xlog.Component("xtick"), slog.Any("panic", p))
		}
	}()
	h(ctx, t)
}

type localSub struct {
	g    *Generator
	id   uint64
	stop func() bool
	once sync.Once
}

func (s *localSub) Unsubscribe() error {
	s.once.Do(func() {
		s.g.mu.Lock()
		delete(s.g.subs, s.id)
		stop := s.stop
		s.g.mu.Unlock()
		if stop != nil {
			stop()
		}
	})
	return nil
}
