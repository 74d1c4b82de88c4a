package xtick

import (
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
)

// Generator 默认参数。
const (
	DefaultInitialDelay = 10 * time.Second
	DefaultPeriod       = time.Second
)

type options struct {
	logger       xlog.Logger
	observer     xmetrics.Observer
	now          func() time.Time
	initialDelay time.Duration
	period       time.Duration
	sender       string
}

func defaultOptions() options {
	return options{
		logger:       xlog.Discard(),
		observer:     xmetrics.NoopObserver{},
		now:          time.Now,
		initialDelay: DefaultInitialDelay,
		period:       DefaultPeriod,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option Generator 与 Coordinator 的选项。
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

// WithClock 设置 tick 时间戳使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithInitialDelay 设置首次触发前的等待（仅 Generator），允许为 0。
func WithInitialDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.initialDelay = d
		}
	}
}

// WithPeriod 设置触发周期（仅 Generator）。
func WithPeriod(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.period = d
		}
	}
}

// WithSender 设置写入 TagSender 的值，通常为节点地址。
func WithSender(sender string) Option {
	return func(o *options) {
		o.sender = sender
	}
}
