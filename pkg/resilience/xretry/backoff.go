package xretry

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffPolicy 第 attempt 次（从 1 开始）失败后的等待时间。
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedBackoff 固定延迟。
type FixedBackoff time.Duration

func (b FixedBackoff) NextDelay(int) time.Duration { return time.Duration(b) }

// 指数退避的默认值。
const (
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 2.0
)

// ExponentialBackoff 指数退避，可直接作为配置项反序列化。
//
//	delay = min(Initial * Multiplier^(attempt-1) * (1 ± Jitter), Max)
//
// 零值字段取默认值；Jitter 为 0 表示不抖动，超出 [0, 1] 时截断。
// Max 小于 Initial 时以 Initial 为上限。
type ExponentialBackoff struct {
	Initial    time.Duration `koanf:"initial"`
	Max        time.Duration `koanf:"max"`
	Multiplier float64       `koanf:"multiplier"`
	Jitter     float64       `koanf:"jitter"`
}

// NextDelay 实现 BackoffPolicy，值接收者，并发安全。
func (b ExponentialBackoff) NextDelay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	limit := b.Max
	if limit <= 0 {
		limit = DefaultMaxDelay
	}
	limit = max(limit, initial)
	mult := b.Multiplier
	if mult < 1 {
		mult = DefaultMultiplier
	}

	delay := float64(initial) * math.Pow(mult, float64(max(attempt, 1)-1))
	if j := min(max(b.Jitter, 0), 1); j > 0 {
		delay *= 1 + (rand.Float64()*2-1)*j
	}
	// attempt 很大时 Pow 溢出为 +Inf，NaN 与任何值比较都为 false
	if math.IsNaN(delay) || delay < 0 || delay >= float64(limit) {
		return limit
	}
	return time.Duration(delay)
}
