// Package xpool 提供任务执行池与命名 dispatcher 注册表。
//
// [Pool] 是轻量级的泛型 worker pool：
//   - 可配置的 worker 数量和队列大小
//   - Submit 永不阻塞，队列满时返回 [ErrQueueFull]
//   - 优雅关闭：Shutdown(ctx) 处理完队列中的任务后退出，ctx 到期立即返回
//   - panic 恢复：单个任务 panic 不影响 pool，记录堆栈日志
//
// [Registry] 按名称管理一组执行 func() 的 dispatcher。worker 引擎通过
// [Registry.Resolve] 查找 "worker-dispatcher"，不存在时回退到 "default"。
//
// # 注意事项
//
//   - Shutdown 不可在任务内调用，否则会死锁
//   - panic 的任务不会被重试
package xpool
