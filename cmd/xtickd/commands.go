package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtick/pkg/cluster/xnode"
	"github.com/omeyang/xtick/pkg/config/xconf"
	"github.com/omeyang/xtick/pkg/distributed/xcron"
	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// defaultNextCount next 命令默认列出的次数。
const defaultNextCount = 5

// createRunCommand 创建 run 子命令。
func createRunCommand(stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "按配置运行节点",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "配置文件路径（yaml 或 json）",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "不监视配置文件变更",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdRun(ctx, cmd.String("config"), !cmd.Bool("no-watch"), stderr)
		},
	}
}

// createCheckCommand 创建 check 子命令。
func createCheckCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "校验调度表达式",
		ArgsUsage: "<expr>...",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdCheck(stdout, cmd.Args().Slice())
		},
	}
}

// createNextCommand 创建 next 子命令。
func createNextCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "next",
		Usage:     "列出接下来的触发时间",
		ArgsUsage: "<expr>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "列出的次数",
				Value:   defaultNextCount,
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "起始时间（RFC3339），默认为当前时间",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdNext(stdout, stderr, cmd.Args().Slice(), cmd.Int("count"), cmd.String("from"))
		},
	}
}

// createVersionCommand 创建 version 子命令。
func createVersionCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "打印版本",
		Action: func(context.Context, *cli.Command) error {
			fmt.Fprintf(stdout, "xtickd %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
			return nil
		},
	}
}

// loadConfig 读取并校验节点配置。读取或校验失败属于配置错误。
func loadConfig(path string) (xconf.Config, xnode.Config, error) {
	cfg := xnode.DefaultConfig()
	src, err := xconf.Load(path, &cfg)
	if err != nil {
		return nil, cfg, &usageError{err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, &usageError{err: err}
	}
	return src, cfg, nil
}

func cmdRun(ctx context.Context, path string, watch bool, stderr io.Writer) error {
	src, cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	logger, cleanup, err := xnode.BuildLogger(cfg.Log, stderr)
	if err != nil {
		return &usageError{err: err}
	}
	defer func() { _ = cleanup() }()

	node, err := xnode.New(cfg, sampleCatalog(logger), xnode.WithLogger(logger))
	if err != nil {
		return &usageError{err: err}
	}
	ctx = xlog.WithNode(ctx, node.Address())

	if watch {
		w, err := xconf.Watch(src, reloadLogLevel(ctx, logger))
		if err != nil {
			logger.Warn(ctx, "config watch disabled", xlog.Component("xtickd"), xlog.Err(err))
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	if err := node.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reloadLogLevel 配置文件变更后只应用日志级别，其余配置需要重启生效。
func reloadLogLevel(ctx context.Context, logger xlog.LoggerWithLevel) xconf.WatchCallback {
	return func(src xconf.Config, err error) {
		if err != nil {
			logger.Warn(ctx, "config reload failed", xlog.Component("xtickd"), xlog.Err(err))
			return
		}
		var log xnode.LogConfig
		if err := src.Unmarshal("log", &log); err != nil {
			logger.Warn(ctx, "config reload failed", xlog.Component("xtickd"), xlog.Err(err))
			return
		}
		if log.Level == "" {
			return
		}
		if err := xnode.ApplyLogLevel(logger, log.Level); err != nil {
			logger.Warn(ctx, "invalid log level in config", xlog.Component("xtickd"), xlog.Err(err))
			return
		}
		logger.Info(ctx, "log level reloaded", xlog.Component("xtickd"), xlog.Operation(log.Level))
	}
}

func cmdCheck(stdout io.Writer, exprs []string) error {
	if len(exprs) == 0 {
		return usagef("check 需要至少一个调度表达式")
	}
	failed := false
	for _, expr := range exprs {
		s, err := xcron.Parse(expr)
		if err != nil {
			failed = true
			fmt.Fprintf(stdout, "invalid\t%q\t%v\n", expr, err)
			continue
		}
		fmt.Fprintf(stdout, "ok\t%q\t%s\n", expr, s)
	}
	if failed {
		return &exitError{code: exitUsage}
	}
	return nil
}

func cmdNext(stdout, stderr io.Writer, args []string, count int, from string) error {
	if len(args) != 1 {
		return usagef("next 需要且只需要一个调度表达式，得到 %d 个", len(args))
	}
	if count <= 0 {
		return usagef("--count 必须为正数: %d", count)
	}
	s, err := xcron.Parse(args[0])
	if err != nil {
		return &usageError{err: err}
	}

	start := time.Now()
	if from != "" {
		if start, err = time.Parse(time.RFC3339, from); err != nil {
			return usagef("--from: %v", err)
		}
	}
	times := s.NextN(start, count)
	for _, t := range times {
		fmt.Fprintln(stdout, t.Format(time.RFC3339))
	}
	if len(times) < count {
		fmt.Fprintf(stderr, "only %d firing times within the search window\n", len(times))
	}
	return nil
}
