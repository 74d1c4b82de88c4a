package xnode

import (
	"time"

	"github.com/omeyang/xtick/pkg/cluster/xmember"
	"github.com/omeyang/xtick/pkg/mq/xtopic"
	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/storage/xreplica"
)

// Option 节点选项。
type Option func(*options)

type options struct {
	logger   xlog.Logger
	observer xmetrics.Observer
	now      func() time.Time

	// 以下由调用方提供时节点不负责关闭。
	router  xtopic.Router
	backend xreplica.Backend
	members xmember.Source
}

func defaultOptions() options {
	return options{
		logger: xlog.Discard(),
		now:    time.Now,
	}
}

// WithLogger 设置日志记录器。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置观测器，优先于 telemetry.enabled。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock 设置 tick 生成与 worker 判定使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRouter 使用外部路由器，忽略 router 配置。
//
// 同进程内多个节点共享同一个 LocalRouter 即可组成集群。
func WithRouter(r xtopic.Router) Option {
	return func(o *options) {
		o.router = r
	}
}

// WithReplicaBackend 使用外部复制后端，忽略 replica.backend 配置。
func WithReplicaBackend(b xreplica.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithMembershipSource 使用外部成员来源，忽略 membership 配置。
func WithMembershipSource(s xmember.Source) Option {
	return func(o *options) {
		o.members = s
	}
}
