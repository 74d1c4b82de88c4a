package xpool

import "github.com/omeyang/xtick/pkg/observability/xlog"

type options struct {
	logger xlog.Logger
	name   string
}

// Option Pool 与 Registry 共用的选项。
type Option func(*options)

// WithLogger 任务 panic 时的日志输出，nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName pool 名称，出现在 panic 日志中。Registry 注册时自动设置为 dispatcher 名。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}
