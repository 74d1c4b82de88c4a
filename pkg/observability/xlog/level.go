package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，数值与 slog.Level 相同。
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

func (l Level) String() string { return slog.Level(l).String() }

// MarshalText 输出 slog 的级别名，如 "WARN"、"INFO+2"。
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 接受 ParseLevel 能解析的任意写法。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析级别名，大小写不敏感。
//
// 除 debug/info/warn/error 外还接受 "warning" 与 slog 的偏移写法 "info+2"。
// 运行时调整级别的入口（配置热加载）都经过这里。
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(name, "WARNING"); ok {
		name = "WARN" + rest
	}
	var sl slog.Level
	if name == "" || sl.UnmarshalText([]byte(name)) != nil {
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
	return Level(sl), nil
}
