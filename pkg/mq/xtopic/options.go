package xtopic

import (
	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
)

const (
	// DefaultQueueSize 每个本地订阅的默认队列容量。
	DefaultQueueSize = 64

	// DefaultSubjectPrefix NATS 主题前缀。
	DefaultSubjectPrefix = "xtick."
)

type options struct {
	logger    xlog.Logger
	observer  xmetrics.Observer
	queueSize int
	prefix    string
}

func defaultOptions() options {
	return options{
		logger:    xlog.Discard(),
		observer:  xmetrics.NoopObserver{},
		queueSize: DefaultQueueSize,
		prefix:    DefaultSubjectPrefix,
	}
}

// Option 路由器选项。
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

// WithQueueSize 设置本地订阅队列容量（仅 LocalRouter）。
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithSubjectPrefix 设置 NATS 主题前缀（仅 NATSRouter），用于隔离同一 NATS 上的多个集群。
func WithSubjectPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}
