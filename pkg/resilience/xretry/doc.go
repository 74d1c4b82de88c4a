// Package xretry 基于 [avast/retry-go/v5] 的重试执行器。
//
// Retryer 组合三件事：
//   - 次数：WithAttempts(n)，0 表示直到成功或 ctx 取消
//   - 退避：BackoffPolicy，内置带抖动的 ExponentialBackoff
//   - 判定：WithRetryIf 决定哪些错误值得重试，Permanent 包装的错误总是立即返回
//
// 用法：
//
//	r := xretry.NewRetryer(
//	    xretry.WithAttempts(8),
//	    xretry.WithBackoff(xretry.ExponentialBackoff{Initial: 5 * time.Millisecond, Max: 200 * time.Millisecond}),
//	    xretry.WithRetryIf(func(err error) bool { return errors.Is(err, ErrConflict) }),
//	)
//	err := r.Do(ctx, func(ctx context.Context) error { return casUpdate(ctx) })
//
// Do 只返回最后一次的错误，ctx 取消时返回 ctx 的错误。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
