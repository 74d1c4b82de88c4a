package deploy

import (
	"errors"
	"fmt"
	"strings"
)

// Mode worker 的 tick 来源
type Mode string

const (
	// Cluster 订阅集群主题（TICK / TICK-ALL），tick 由 leader 发布
	Cluster Mode = "cluster"

	// Local 直接订阅本节点的 tick 生成器，不经过 leader
	Local Mode = "local"
)

var (
	// ErrMissingValue 模式值为空
	ErrMissingValue = errors.New("deploy: missing mode value")

	// ErrInvalidMode 模式非法（不是 cluster/local）
	ErrInvalidMode = errors.New("deploy: invalid mode")
)

func (m Mode) String() string {
	return string(m)
}

// IsLocal 判断是否为本地模式
func (m Mode) IsLocal() bool {
	return m == Local
}

// IsValid 判断模式是否为已知值
func (m Mode) IsValid() bool {
	return m == Cluster || m == Local
}

// ParseMode 大小写不敏感地解析模式
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cluster":
		return Cluster, nil
	case "local":
		return Local, nil
	case "":
		return "", ErrMissingValue
	default:
		return "", fmt.Errorf("%w: %q (expected cluster or local)", ErrInvalidMode, s)
	}
}

// UnmarshalText 支持配置文件中直接写 "local" / "cluster"
func (m *Mode) UnmarshalText(data []byte) error {
	parsed, err := ParseMode(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
