package xreplica

import (
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/util/xid"
)

// DefaultQueueSize 请求队列默认容量。
const DefaultQueueSize = 1024

// 熔断默认参数。
const (
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 10 * time.Second
)

type options struct {
	logger          xlog.Logger
	observer        xmetrics.Observer
	ids             *xid.Generator
	writeHook       func(Tag, error)
	queueSize       int
	write           Consistency
	read            Consistency
	breakerFailures uint32
	breakerTimeout  time.Duration
}

func defaultOptions() options {
	return options{
		logger:          xlog.Discard(),
		observer:        xmetrics.NoopObserver{},
		queueSize:       DefaultQueueSize,
		write:           Default(),
		read:            Default(),
		breakerFailures: defaultBreakerFailures,
		breakerTimeout:  defaultBreakerTimeout,
	}
}

// Option Map 选项。
type Option func(*options)

// WithLogger 设置日志记录器，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置观测器，nil 被忽略。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithIDGenerator 设置关联 ID 生成器，默认按本机机器 ID 新建。
func WithIDGenerator(g *xid.Generator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithWriteHook 设置写入完成回调，在请求循环 goroutine 中调用，不应阻塞。
func WithWriteHook(fn func(Tag, error)) Option {
	return func(o *options) {
		o.writeHook = fn
	}
}

// WithQueueSize 设置请求队列容量。
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithWriteConsistency 设置 Put/Delete 的一致性。
func WithWriteConsistency(c Consistency) Option {
	return func(o *options) {
		o.write = c.orDefault(Default())
	}
}

// WithReadConsistency 设置 Get 的读取级别（超时由 Get 的参数决定）。
func WithReadConsistency(c Consistency) Option {
	return func(o *options) {
		o.read = c.orDefault(Default())
	}
}

// WithBreaker 设置连续失败 failures 次后熔断，熔断 timeout 后半开探测。
func WithBreaker(failures uint32, timeout time.Duration) Option {
	return func(o *options) {
		if failures > 0 {
			o.breakerFailures = failures
		}
		if timeout > 0 {
			o.breakerTimeout = timeout
		}
	}
}
