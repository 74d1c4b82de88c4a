// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 仅定义最小化接口：Observer/Span/Attr，调度组件只依赖接口；
// 默认实现基于 OpenTelemetry。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xworker",
//		Operation: "run",
//		Kind:      xmetrics.KindConsumer,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xtick.operation.total
//   - xtick.operation.duration
//
// 指标属性只有 component / operation / status，保持低基数；
// worker 名称与 tick id 只写入 span 属性。
package xmetrics
