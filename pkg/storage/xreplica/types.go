package xreplica

import (
	"slices"
	"strconv"
)

// Tag 标识一次请求，ID 为关联 ID。
type Tag struct {
	ID  int64
	Key string
}

func (t Tag) String() string {
	return t.Key + "#" + strconv.FormatInt(t.ID, 10)
}

// Result 一次读取的结果。
//
// 超时时 Err 为 ErrTimeout 且 Found 为 false。
type Result struct {
	Tag    Tag
	Found  bool
	Values []string
	Err    error
}

// Empty 键不存在或值集合为空。
func (r Result) Empty() bool {
	return !r.Found || len(r.Values) == 0
}

// Contains 值集合是否包含 v。
func (r Result) Contains(v string) bool {
	return slices.Contains(r.Values, v)
}

// Single 值集合恰好只有一个值时返回它。
func (r Result) Single() (string, bool) {
	if len(r.Values) != 1 {
		return "", false
	}
	return r.Values[0], true
}

// ModifyFunc 基于当前值集合计算新集合。
//
// changed 为 false 时保持不变；changed 为 true 且 next 为空时删除键。
// 后端发生比较交换冲突时会以最新值重新调用，因此必须是无副作用的纯函数。
type ModifyFunc func(current []string) (next []string, changed bool)

// normalize 去重并排序，值集合没有顺序语义。
func normalize(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
