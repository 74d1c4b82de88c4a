package xnode

import (
	"io"

	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// BuildLogger 按日志配置构建 logger。File 非空时写入轮转文件，否则写入 w。
//
// 返回的 cleanup 关闭轮转文件。
func BuildLogger(cfg LogConfig, w io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetOutput(w).
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format).
		SetAddSource(cfg.AddSource)
	if cfg.File != "" {
		b = b.SetRotation(cfg.File, cfg.Rotation)
	}
	return b.Build()
}

// ApplyLogLevel 将 level 应用到已构建的 logger，用于配置热更新。
func ApplyLogLevel(l xlog.Leveler, level string) error {
	lv, err := xlog.ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lv)
	return nil
}
