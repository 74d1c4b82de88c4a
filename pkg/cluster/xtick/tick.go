package xtick

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/omeyang/xtick/pkg/util/xid"
)

// 约定的主题。
const (
	// TopicTick 每个消费组一份，供单例任务使用。
	TopicTick = "TICK"
	// TopicTickAll 广播给所有普通订阅者。
	TopicTickAll = "TICK-ALL"
)

// TagSender 标记产生 tick 的节点或组件。
const TagSender = "sender"

// ErrNilIDGenerator ID 生成器为空。
var ErrNilIDGenerator = errors.New("xtick: id generator is nil")

// Tick 一次逻辑心跳。创建后不应修改。
type Tick struct {
	ID          string         `json:"id"`
	TimestampMs int64          `json:"timestampMs"`
	Tags        map[string]any `json:"tags"`
}

// NewTick 以 now 为时间戳创建 tick，ID 由 ids 生成。
func NewTick(ids *xid.Generator, now time.Time, sender string) (Tick, error) {
	if ids == nil {
		return Tick{}, ErrNilIDGenerator
	}
	id, err := ids.NewString()
	if err != nil {
		return Tick{}, fmt.Errorf("xtick: tick id: %w", err)
	}
	t := Tick{ID: id, TimestampMs: now.UnixMilli(), Tags: map[string]any{}}
	if sender != "" {
		t.Tags[TagSender] = sender
	}
	return t, nil
}

// Time 返回时间戳对应的时间（本地时区）。
func (t Tick) Time() time.Time {
	return time.UnixMilli(t.TimestampMs)
}

// Sender 返回 TagSender 标签。
func (t Tick) Sender() string {
	s, _ := t.Tags[TagSender].(string)
	return s
}

// Age 返回 tick 相对 now 的年龄。
func (t Tick) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-t.TimestampMs) * time.Millisecond
}

// Encode 编码为线上 JSON 格式。
func (t Tick) Encode() ([]byte, error) {
	if t.Tags == nil {
		t.Tags = map[string]any{}
	}
	return json.Marshal(t)
}

// DecodeTick 解析线上 JSON。
func DecodeTick(data []byte) (Tick, error) {
	var t Tick
	if err := json.Unmarshal(data, &t); err != nil {
		return Tick{}, fmt.Errorf("xtick: decode tick: %w", err)
	}
	if t.ID == "" {
		return Tick{}, fmt.Errorf("xtick: decode tick: missing id")
	}
	return t, nil
}

// clone 复制标签，避免多个订阅者共享同一个 map。
func (t Tick) clone() Tick {
	t.Tags = maps.Clone(t.Tags)
	return t
}
