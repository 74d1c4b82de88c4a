package xmetrics

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Kind 跨度类型。tick 的发布与投递分别对应 Producer 与 Consumer。
type Kind = trace.SpanKind

const (
	KindInternal = trace.SpanKindInternal
	KindClient   = trace.SpanKindClient
	KindProducer = trace.SpanKindProducer
	KindConsumer = trace.SpanKindConsumer
)

// Status 观测结果，作为指标的 status 标签。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
	// StatusDropped 有意丢弃（过期 tick、任务仍在运行、锁被占用），不计为错误。
	StatusDropped Status = "dropped"
)

// SpanOptions 跨度参数。Component 与 Operation 组成跨度名和指标标签。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 跨度结果。Status 为空时由 Err 推导。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

func (r Result) status() Status {
	switch {
	case r.Status != "":
		return r.Status
	case r.Err != nil:
		return StatusError
	default:
		return StatusOK
	}
}

// Span 一次观测。
type Span interface {
	End(result Result)
}

// Observer 所有调度组件共用的观测入口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不做任何记录。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 容忍 nil observer 以及返回 nil 的实现，结果总是可用。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if observer == nil {
		return ctx, NoopSpan{}
	}
	next, span := observer.Start(ctx, opts)
	if next == nil {
		next = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return next, span
}

// Observe 在一个跨度内执行 fn，以其返回值结束跨度。
func Observe(ctx context.Context, observer Observer, opts SpanOptions, fn func(ctx context.Context) error) error {
	ctx, span := Start(ctx, observer, opts)
	err := fn(ctx)
	span.End(Result{Err: err})
	return err
}
