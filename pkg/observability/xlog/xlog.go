// Package xlog 提供基于 log/slog 的结构化日志。
//
// # 设计理念
//
//   - 强制 context 传递：节点、worker、tick 等调度上下文从 ctx 自动注入
//   - 动态级别控制：配置热更新时无需重建 logger
//   - 生命周期管理：Build() 返回 cleanup 函数，负责关闭轮转文件
//   - 类型安全：方法签名只接受 slog.Attr
//
// xlog 不提供全局 logger，由节点装配时构建并注入各组件；
// 组件未注入 logger 时使用 [Discard]。
//
// # 快速开始
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/xtick/node.log", xlog.RotationOptions{MaxSizeMB: 100}).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
//	ctx = xlog.WithWorker(ctx, "sample-singleton")
//	logger.Info(ctx, "job finished", xlog.Duration(elapsed))
package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 所有方法都需要 context.Context 参数，确保调度上下文正确传播。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)
	// Stack 记录带当前 goroutine 堆栈的错误日志，用于 panic 诊断
	Stack(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger，派生 logger 共享父级的级别
	With(attrs ...slog.Attr) Logger
	// WithGroup 返回带分组的派生 Logger
	WithGroup(name string) Logger
}

// Leveler 级别控制接口
//
// 与 Logger 分离，避免污染核心日志接口。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 组合接口：Logger + Leveler，Build() 返回此接口。
type LoggerWithLevel interface {
	Logger
	Leveler
}

// OrDiscard 在 l 为 nil 时返回 [Discard]，供组件处理可选 logger。
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard()
	}
	return l
}
