// Package xrun 管理节点内各组件的运行与关闭。
//
// Group 基于 [errgroup] 并发运行长期服务，任一服务出错或 ctx 取消时
// 所有服务收到取消信号。组件的停止钩子在所有服务退出后按注册的逆序执行，
// 先启动的组件最后停止：
//
//	g, ctx := xrun.NewGroup(ctx, xrun.WithLogger(logger))
//	g.OnStop("router", router.Close)        // 最后停止
//	g.OnStop("generator", generator.Stop)   // 先停止
//	g.Go("membership", registry.Run)
//	err := g.Wait()
//
// Run 在 Group 之上加入信号处理：收到 SIGINT/SIGTERM 等信号时取消 Group，
// 并返回 *SignalError，可用 errors.Is(err, ErrSignal) 判断。
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun
