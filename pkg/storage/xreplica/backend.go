package xreplica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xtick/pkg/resilience/xretry"
)

// Backend 复制存储后端。键已由 Map 加上命名空间。
//
// 不存在的键 Get 返回 (nil, nil)。实现必须并发安全，
// 但 Map 保证同一个 Map 的请求串行到达。
type Backend interface {
	Get(ctx context.Context, key string, level Level) ([]string, error)
	// Put 将键的值集合替换为 {value}。
	Put(ctx context.Context, key, value string, level Level) error
	Delete(ctx context.Context, key string, level Level) error
	// Update 原子地读取-修改-写入，冲突时重试。
	Update(ctx context.Context, key string, level Level, modify ModifyFunc) error
	Close() error
}

// 比较交换重试参数。
const (
	defaultCASAttempts = 8
	casBaseDelay       = 5 * time.Millisecond
	casMaxDelay        = 200 * time.Millisecond
)

// retryConflicts 仅在 ErrConflict 时重试 fn，指数退避加抖动。
func retryConflicts(ctx context.Context, attempts uint, fn func() error) error {
	if attempts == 0 {
		attempts = defaultCASAttempts
	}
	r := xretry.NewRetryer(
		xretry.WithAttempts(attempts),
		xretry.WithBackoff(casBackoff),
		xretry.WithRetryIf(func(err error) bool {
			return errors.Is(err, ErrConflict)
		}),
	)
	return r.Do(ctx, func(context.Context) error { return fn() })
}

var casBackoff = xretry.ExponentialBackoff{Initial: casBaseDelay, Max: casMaxDelay, Jitter: 0.5}

// encodeValues 将值集合编码为 JSON 数组，供只能存单值的后端使用。
func encodeValues(values []string) ([]byte, error) {
	data, err := json.Marshal(normalize(values))
	if err != nil {
		return nil, fmt.Errorf("xreplica: encode values: %w", err)
	}
	return data, nil
}

func decodeValues(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return normalize(values), nil
}
