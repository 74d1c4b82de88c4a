package xlog

import (
	"context"
	"log/slog"
)

// contextHandler 在每条记录上追加 ctx 中的 node、worker、tick_id。
//
// 设计决策: 字段在 Handle 时读取而不是在 WithAttrs 时固化，同一个 logger
// 可以跨 tick 复用。WithGroup 之后追加的字段会落在 group 内。
type contextHandler struct {
	next slog.Handler
}

var _ slog.Handler = contextHandler{}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [3]slog.Attr
	if attrs := AppendContextAttrs(buf[:0], ctx); len(attrs) > 0 {
		// Record 可能被其他 handler 共享，修改前先 Clone
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name)}
}
