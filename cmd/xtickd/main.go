// xtickd 运行一个 xtick 集群节点，并提供调度表达式工具。
//
// 用法:
//
//	xtickd <命令> [命令参数]
//
// 命令:
//
//	run --config <file>          按配置运行节点，直到 SIGINT/SIGTERM
//	check <expr>...              校验调度表达式
//	next <expr> [--count N]      列出接下来 N 次触发时间
//	version                      打印版本
//
// 退出码:
//
//	0: 成功
//	1: 运行期失败
//	2: 参数或配置错误（含不合法的调度表达式）
//
// 示例:
//
//	xtickd run --config /etc/xtick/node.yaml
//	XTICK_ROLES=role2,role3 xtickd run -c node.yaml
//	xtickd check "*/5 * *" "0 30 9 * * 1-5"
//	xtickd next "12 * *" --count 3 --from 2026-01-01T00:00:00Z
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
