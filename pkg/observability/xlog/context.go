package xlog

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	nodeKey ctxKey = iota
	workerKey
	tickKey
)

// WithNode 在 ctx 中记录当前节点地址
func WithNode(ctx context.Context, node string) context.Context {
	return context.WithValue(ctx, nodeKey, node)
}

// WithWorker 在 ctx 中记录当前 worker 名称
func WithWorker(ctx context.Context, worker string) context.Context {
	return context.WithValue(ctx, workerKey, worker)
}

// WithTick 在 ctx 中记录当前处理的 tick id
func WithTick(ctx context.Context, tickID string) context.Context {
	return context.WithValue(ctx, tickKey, tickID)
}

// NodeFrom 读取 ctx 中的节点地址
func NodeFrom(ctx context.Context) string {
	return stringFrom(ctx, nodeKey)
}

// WorkerFrom 读取 ctx 中的 worker 名称
func WorkerFrom(ctx context.Context) string {
	return stringFrom(ctx, workerKey)
}

// TickFrom 读取 ctx 中的 tick id
func TickFrom(ctx context.Context) string {
	return stringFrom(ctx, tickKey)
}

func stringFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// AppendContextAttrs 将 ctx 中的调度上下文追加到 attrs，顺序为 node、worker、tick_id。
func AppendContextAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if v := NodeFrom(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyNode, v))
	}
	if v := WorkerFrom(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyWorker, v))
	}
	if v := TickFrom(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTickID, v))
	}
	return attrs
}
