package xbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrOpen 熔断器打开或半开探测名额已满。
var ErrOpen = errors.New("xbreaker: circuit open")

// State 熔断器状态。
type State = gobreaker.State

// 状态常量。
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// 默认参数。
const (
	DefaultFailures = 5
	DefaultTimeout  = 10 * time.Second
)

// Breaker 熔断器，并发安全。
type Breaker struct {
	name          string
	failures      uint32
	timeout       time.Duration
	successIf     func(error) bool
	onStateChange func(name string, from, to State)
	cb            *gobreaker.CircuitBreaker[any]
}

// Option 熔断器选项。
type Option func(*Breaker)

// WithFailures 连续失败 n 次后熔断，0 被忽略。
func WithFailures(n uint32) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failures = n
		}
	}
}

// WithTimeout 熔断持续时间，之后进入半开状态。
func WithTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithSuccessIf 返回 true 的错误不计入失败。nil 错误总是成功。
func WithSuccessIf(fn func(error) bool) Option {
	return func(b *Breaker) {
		b.successIf = fn
	}
}

// WithOnStateChange 状态变化回调，在调用方的 goroutine 中同步执行。
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// NewBreaker 创建熔断器。
func NewBreaker(name string, opts ...Option) *Breaker {
	b := &Breaker{name: name, failures: DefaultFailures, timeout: DefaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: b.timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= b.failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (b.successIf != nil && b.successIf(err))
		},
		OnStateChange: b.onStateChange,
	})
	return b
}

// Name 熔断器名称。
func (b *Breaker) Name() string { return b.name }

// State 当前状态。
func (b *Breaker) State() State { return b.cb.State() }

// Do 经熔断器执行 fn。ctx 已取消时不调用 fn。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	_, err := Execute(ctx, b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Execute 经熔断器执行带返回值的 fn。熔断时返回包装了 ErrOpen 的错误。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	v, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %s: %w", ErrOpen, b.name, err)
	}
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
