package xtick

import (
	"time"

	"github.com/robfig/cron/v3"
)

// delaySchedule 在 first 首次触发，之后每 period 触发一次。
type delaySchedule struct {
	first  time.Time
	period time.Duration
}

var _ cron.Schedule = delaySchedule{}

// Next 返回严格晚于 t 的下一个触发时间，错过的周期被跳过而不是补发。
func (s delaySchedule) Next(t time.Time) time.Time {
	if t.Before(s.first) {
		return s.first
	}
	n := t.Sub(s.first)/s.period + 1
	return s.first.Add(n * s.period)
}

// cronLogger 把 robfig/cron 的日志接到 xlog。
type cronLogger struct {
	log func(msg string, err error, kv []any)
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log(msg, nil, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log(msg, err, keysAndValues)
}
