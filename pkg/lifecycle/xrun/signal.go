package xrun

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// DefaultSignals 默认监听的信号，每次调用返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// 设计决策: 测试通过 ctx 注入信号通道，避免向测试进程发送真实信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Run 创建 Group，由 setup 注册服务与停止钩子，并等待结束。
//
// 未禁用信号处理时，收到信号会以 *SignalError 取消 Group。
// setup 返回错误时取消 Group，已注册的停止钩子仍会执行。
func Run(ctx context.Context, setup func(g *Group) error, opts ...Option) error {
	g, gctx := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		testc := testSigChan(ctx)
		g.eg.Go(func() error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, signals...)
			defer signal.Stop(sigCh)

			var sig os.Signal
			select {
			case sig = <-testc:
			case sig = <-sigCh:
			case <-gctx.Done():
				return nil
			}
			g.opts.logger.Info(gctx, "received signal", xlog.Component(g.opts.name),
				slog.String("signal", sig.String()))
			g.cancel(&SignalError{Signal: sig})
			return nil
		})
	}

	if err := setup(g); err != nil {
		g.cancel(err)
	}
	return g.Wait()
}
