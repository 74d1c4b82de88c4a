package xrun

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtick/pkg/observability/xlog"
)

type stopHook struct {
	name string
	fn   func(ctx context.Context) error
}

// Group 并发运行服务，并在全部退出后逆序执行停止钩子。
//
// Go、OnStop、Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions

	mu    sync.Mutex
	stops []stopHook
}

// NewGroup 创建 Group。返回的 ctx 在任一服务出错或 Cancel 时取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

// Go 以 name 运行一个服务。服务应在 ctx 取消后返回。
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return fmt.Errorf("%w: service %s", ErrNilFunc, name)
		}
		g.opts.logger.Debug(g.ctx, "service starting", xlog.Component(g.opts.name), xlog.Operation(name))
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", xlog.Component(g.opts.name),
				xlog.Operation(name), xlog.Err(err))
			return fmt.Errorf("%s: %w", name, err)
		}
		g.opts.logger.Debug(g.ctx, "service stopped", xlog.Component(g.opts.name), xlog.Operation(name))
		return err
	})
}

// OnStop 注册停止钩子。钩子在 Wait 中按注册的逆序执行。
func (g *Group) OnStop(name string, fn func(ctx context.Context) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stops = append(g.stops, stopHook{name: name, fn: fn})
}

// Cancel 取消所有服务。非 nil 的 cause 会由 Wait 返回。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 ctx。
func (g *Group) Context() context.Context {
	return g.ctx
}

// Wait 等待所有服务退出，然后执行停止钩子。
//
// 返回第一个服务错误（显式的取消原因优先于 context.Canceled）与钩子错误的合并。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.classify(g.eg.Wait())
	return errors.Join(err, g.runStops())
}

func (g *Group) classify(err error) error {
	canceled := g.causeCtx.Err() != nil
	cause := context.Cause(g.causeCtx)
	explicit := canceled && cause != nil && !errors.Is(cause, context.Canceled)

	switch {
	case errors.Is(err, context.Canceled) && canceled:
		if explicit {
			return cause
		}
		return nil
	case err == nil && explicit:
		return cause
	}
	return err
}

func (g *Group) runStops() error {
	g.mu.Lock()
	stops := g.stops
	g.stops = nil
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(g.ctx), g.opts.stopTimeout)
	defer cancel()

	var errs []error
	for i := len(stops) - 1; i >= 0; i-- {
		h := stops[i]
		if h.fn == nil {
			continue
		}
		g.opts.logger.Debug(ctx, "stopping", xlog.Component(g.opts.name), xlog.Operation(h.name))
		if err := h.fn(ctx); err != nil {
			g.opts.logger.Warn(ctx, "stop failed", xlog.Component(g.opts.name),
				xlog.Operation(h.name), xlog.Err(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
