package xretry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
)

// PermanentError 标记不应重试的错误。
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent 包装 err，使 Do 立即返回。err 为 nil 时返回 nil。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent 判断 err 链中是否有 PermanentError。
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Retryer 重试执行器，创建后并发安全。
type Retryer struct {
	attempts uint
	backoff  BackoffPolicy
	retryIf  func(error) bool
	onRetry  func(attempt uint, err error)
}

// RetryerOption Retryer 配置选项
type RetryerOption func(*Retryer)

// WithAttempts 设置最多执行次数，0 表示直到成功或 ctx 取消。
func WithAttempts(n uint) RetryerOption {
	return func(r *Retryer) {
		r.attempts = n
	}
}

// WithBackoff 设置退避策略，nil 被忽略。
func WithBackoff(b BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if b != nil {
			r.backoff = b
		}
	}
}

// WithRetryIf 设置可重试判定，默认重试除 PermanentError 外的所有错误。
func WithRetryIf(fn func(error) bool) RetryerOption {
	return func(r *Retryer) {
		if fn != nil {
			r.retryIf = fn
		}
	}
}

// WithOnRetry 设置每次失败后、等待前的回调，attempt 从 1 开始。
func WithOnRetry(fn func(attempt uint, err error)) RetryerOption {
	return func(r *Retryer) {
		r.onRetry = fn
	}
}

// NewRetryer 创建执行器。默认 3 次，指数退避。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		attempts: 3,
		backoff:  ExponentialBackoff{Jitter: 0.1},
		retryIf:  func(error) bool { return true },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Do 执行 fn 直到成功、错误不可重试、次数用尽或 ctx 取消。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.New(r.options(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

// DoWithData 带返回值的 Do。
func DoWithData[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.NewWithData[T](r.options(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) options(ctx context.Context) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !IsPermanent(err) && r.retryIf(err)
		}),
		// DelayType 的 n 从 1 开始，OnRetry 的 n 从 0 开始。
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return r.backoff.NextDelay(int(min(n, 1<<20)))
		}),
	}
	if r.attempts == 0 {
		opts = append(opts, retry.UntilSucceeded())
	} else {
		opts = append(opts, retry.Attempts(r.attempts))
	}
	if r.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(n+1, err)
		}))
	}
	return opts
}
