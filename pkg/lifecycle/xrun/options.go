package xrun

import (
	"os"
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// DefaultStopTimeout 执行全部停止钩子的默认时限。
const DefaultStopTimeout = 30 * time.Second

// Option Group 选项。
type Option func(*groupOptions)

type groupOptions struct {
	logger          xlog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
	stopTimeout     time.Duration
}

func defaultOptions() *groupOptions {
	return &groupOptions{
		logger:      xlog.Discard(),
		name:        "xrun",
		stopTimeout: DefaultStopTimeout,
	}
}

// WithLogger 设置生命周期日志的记录器。
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Group 名称，用于日志。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置 Run 监听的信号，为空时使用 DefaultSignals。
func WithSignals(signals []os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

// WithoutSignalHandler 禁用 Run 的信号处理。
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignalHandler = true
	}
}

// WithStopTimeout 设置执行停止钩子的总时限。
func WithStopTimeout(d time.Duration) Option {
	return func(o *groupOptions) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}
