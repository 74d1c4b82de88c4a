package xworker

import (
	"context"
	"errors"

	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/mq/xtopic"
	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// Subscription 可退订的 tick 订阅。
type Subscription interface {
	Unsubscribe() error
}

// Source 为 worker 提供 tick。
type Source interface {
	Subscribe(ctx context.Context, spec Spec, deliver xtick.Handler) (Subscription, error)
}

// RouterSource 从集群主题接收 leader 发布的 tick。
//
// 单例 worker 订阅 TICK 并以 GroupID 为消费组，普通 worker 订阅 TICK-ALL。
type RouterSource struct {
	router xtopic.Router
	logger xlog.Logger
}

// NewRouterSource 创建 RouterSource，logger 为 nil 时丢弃日志。
func NewRouterSource(router xtopic.Router, logger xlog.Logger) (*RouterSource, error) {
	if router == nil {
		return nil, ErrNilSource
	}
	if logger == nil {
		logger = xlog.Discard()
	}
	return &RouterSource{router: router, logger: logger}, nil
}

// Subscribe 实现 Source。无法解析的消息被记录并丢弃。
func (s *RouterSource) Subscribe(ctx context.Context, spec Spec, deliver xtick.Handler) (Subscription, error) {
	topic, group := xtick.TopicTickAll, ""
	if spec.Singleton {
		topic, group = xtick.TopicTick, spec.GroupID()
	}
	return s.router.Subscribe(ctx, topic, group, func(ctx context.Context, msg xtopic.Message) {
		t, err := xtick.DecodeTick(msg.Payload)
		if err != nil {
			s.logger.Warn(ctx, "undecodable tick dropped", xlog.Component("xworker"),
				xlog.Worker(spec.Name), xlog.Topic(msg.Topic), xlog.Err(err))
			return
		}
		deliver(ctx, t)
	})
}

// GeneratorSource 直接订阅本节点的 Generator，不经过 leader。
//
// 只适用于普通 worker：单例需要集群范围的消费组。
type GeneratorSource struct {
	gen *xtick.Generator
}

// ErrSingletonLocal 单例 worker 不能使用本地 tick 源。
var ErrSingletonLocal = errors.New("xworker: singleton worker requires a cluster tick source")

// NewGeneratorSource 创建 GeneratorSource。
func NewGeneratorSource(gen *xtick.Generator) (*GeneratorSource, error) {
	if gen == nil {
		return nil, ErrNilSource
	}
	return &GeneratorSource{gen: gen}, nil
}

// Subscribe 实现 Source。
func (s *GeneratorSource) Subscribe(ctx context.Context, spec Spec, deliver xtick.Handler) (Subscription, error) {
	if spec.Singleton {
		return nil, ErrSingletonLocal
	}
	return s.gen.Subscribe(ctx, deliver)
}
