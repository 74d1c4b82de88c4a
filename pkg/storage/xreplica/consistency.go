package xreplica

import (
	"fmt"
	"strings"
	"time"
)

// Level 复制一致性级别。
type Level int

const (
	// LevelLocal 只要求本地副本。
	LevelLocal Level = iota
	// LevelMajority 要求多数副本。
	LevelMajority
	// LevelAll 要求全部副本。
	LevelAll
)

func (l Level) String() string {
	switch l {
	case LevelLocal:
		return "local"
	case LevelMajority:
		return "majority"
	case LevelAll:
		return "all"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel 大小写不敏感地解析级别。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return LevelLocal, nil
	case "majority", "":
		return LevelMajority, nil
	case "all":
		return LevelAll, nil
	default:
		return 0, fmt.Errorf("xreplica: unknown consistency level %q", s)
	}
}

// UnmarshalText 支持配置文件中直接写级别名。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Consistency 一次读写的一致性要求。
type Consistency struct {
	Level   Level         `koanf:"level"`
	Timeout time.Duration `koanf:"timeout"`
}

const (
	// DefaultTimeout 普通读写的默认超时。
	DefaultTimeout = 5 * time.Second
	// DefaultLockTimeout 锁相关读写的默认超时。
	DefaultLockTimeout = 10 * time.Second
)

// Default 普通读写的默认一致性。
func Default() Consistency {
	return Consistency{Level: LevelMajority, Timeout: DefaultTimeout}
}

// Lock 锁相关读写的默认一致性。
func Lock() Consistency {
	return Consistency{Level: LevelMajority, Timeout: DefaultLockTimeout}
}

// orDefault 超时为 0 时使用 def 的超时。
func (c Consistency) orDefault(def Consistency) Consistency {
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
