package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/cluster/xworker"
	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// 示例任务名，配置中的 workers[].job 引用这些名称。
const (
	jobAllRoles     = "sample-all-roles"
	jobRole2        = "sample-role2"
	jobRole3Or2     = "sample-role3-or-2"
	jobSingleton    = "sample-singleton"
	jobAtSecond12   = "sample-at-sec-12"
	jobPer10Seconds = "sample-per-10-secs"
)

// 单例示例任务的执行时长区间，用于演示锁与忙碌丢弃。
const (
	singletonMinWork = 4 * time.Second
	singletonMaxWork = 7 * time.Second
)

// sampleCatalog 注册全部示例任务。
func sampleCatalog(logger xlog.Logger) *xworker.Catalog {
	c := xworker.NewCatalog()
	for _, name := range []string{jobAllRoles, jobRole2, jobRole3Or2, jobAtSecond12, jobPer10Seconds} {
		c.MustRegister(name, logJob(logger, name))
	}
	c.MustRegister(jobSingleton, singletonJob(logger, func() time.Duration {
		return singletonMinWork + rand.N(singletonMaxWork-singletonMinWork)
	}))
	return c
}

// logJob 只记录一次触发。
func logJob(logger xlog.Logger, name string) xworker.Job {
	return xworker.JobFunc(func(ctx context.Context, t xtick.Tick) error {
		logger.Info(ctx, "sample job fired", xlog.Component(name),
			slog.String("sender", t.Sender()), slog.Bool("first_run", xworker.FirstRun(ctx)))
		return nil
	})
}

// singletonJob 模拟一次耗时 work() 的工作。
func singletonJob(logger xlog.Logger, work func() time.Duration) xworker.Job {
	return xworker.JobFunc(func(ctx context.Context, t xtick.Tick) error {
		d := work()
		logger.Info(ctx, "singleton job started", xlog.Component(jobSingleton), xlog.Duration(d))
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Info(ctx, "singleton job finished", xlog.Component(jobSingleton),
			xlog.Duration(time.Since(t.Time())))
		return nil
	})
}
