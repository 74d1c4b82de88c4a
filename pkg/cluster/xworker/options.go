package xworker

import (
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
)

const (
	// StaleAfter tick 年龄达到该值即视为过期。
	StaleAfter = 30 * time.Second
	// DefaultMailboxSize 每个 worker 待处理信号的上限，超出时丢弃。
	DefaultMailboxSize = 16
)

type options struct {
	logger      xlog.Logger
	observer    xmetrics.Observer
	now         func() time.Time
	location    *time.Location
	mailboxSize int
}

func defaultOptions() options {
	return options{
		logger:      xlog.Discard(),
		observer:    xmetrics.NoopObserver{},
		now:         time.Now,
		location:    time.Local,
		mailboxSize: DefaultMailboxSize,
	}
}

// Option Worker 选项。
type Option func(*options)

// WithLogger 设置日志记录器。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置观测器。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock 设置过期检查与首次运行 tick 使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocation 设置调度匹配使用的时区，默认 time.Local。
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithMailboxSize 设置 mailbox 容量。
func WithMailboxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.mailboxSize = n
		}
	}
}
