package xmember

import (
	"context"
)

// Source 成员事件来源。
type Source interface {
	// Watch 返回成员事件流。先发出当前全部成员的 EventMemberUp，
	// 之后是增量变更；ctx 取消后通道关闭。
	Watch(ctx context.Context) (<-chan Event, error)
}

// 编译期接口检查。
var (
	_ Source = (*StaticSource)(nil)
	_ Source = (*EtcdSource)(nil)
)

// StaticSource 固定成员列表。
//
// Age 全为 0 时按列表顺序赋值，列表第一个成员成为领导者。
type StaticSource struct {
	members []Member
}

// NewStaticSource 创建固定成员来源。
func NewStaticSource(members ...Member) *StaticSource {
	out := make([]Member, len(members))
	copy(out, members)

	unset := true
	for _, m := range out {
		if m.Age != 0 {
			unset = false
			break
		}
	}
	if unset {
		for i := range out {
			out[i].Age = int64(i + 1)
		}
	}
	return &StaticSource{members: out}
}

// Members 返回成员列表。
func (s *StaticSource) Members() []Member {
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

// Watch 发出全部成员后保持打开直到 ctx 取消。
func (s *StaticSource) Watch(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event, len(s.members))
	for _, m := range s.members {
		out <- Event{Type: EventMemberUp, Member: m}
	}
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
