package xdlock

import (
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/storage/xreplica"
)

// DefaultRedisPrefix RedisLocker 的默认键前缀。
const DefaultRedisPrefix = "xtick:lock:"

type options struct {
	logger      xlog.Logger
	observer    xmetrics.Observer
	now         func() time.Time
	consistency xreplica.Consistency
	prefix      string
}

func defaultOptions() options {
	return options{
		logger:      xlog.Discard(),
		observer:    xmetrics.NoopObserver{},
		now:         time.Now,
		consistency: xreplica.Lock(),
		prefix:      DefaultRedisPrefix,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option 锁选项。未注明时对所有实现生效。
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

// WithClock 设置时钟（仅 Weak）。记录过期时间与过期判断都使用它。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithConsistency 设置锁写入与读取的一致性（仅 Weak），默认 xreplica.Lock()。
// Timeout 为 0 时使用 xreplica.DefaultLockTimeout。
func WithConsistency(c xreplica.Consistency) Option {
	return func(o *options) {
		if c.Timeout <= 0 {
			c.Timeout = xreplica.DefaultLockTimeout
		}
		o.consistency = c
	}
}

// WithKeyPrefix 设置 Redis 键前缀（仅 RedisLocker）。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}
