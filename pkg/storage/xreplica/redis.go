package xreplica

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix RedisBackend 默认键前缀。
const DefaultRedisPrefix = "xtick:replica:"

// RedisBackend 以 Redis SET 保存值集合。
//
// Update 使用 WATCH/MULTI 乐观事务，被并发修改时返回 ErrConflict 并重试。
// 配置了副本数时，Majority/All 写入后通过 WAIT 等待副本确认。
type RedisBackend struct {
	client   redis.UniversalClient
	prefix   string
	replicas int
	attempts uint
}

var _ Backend = (*RedisBackend)(nil)

// RedisOption RedisBackend 选项。
type RedisOption func(*RedisBackend)

// WithRedisPrefix 设置键前缀。
func WithRedisPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithRedisReplicas 设置 Redis 副本数，用于 Majority/All 写入时的 WAIT。
// 0（默认）表示不等待。
func WithRedisReplicas(n int) RedisOption {
	return func(b *RedisBackend) {
		if n >= 0 {
			b.replicas = n
		}
	}
}

// WithRedisCASAttempts 设置 Update 冲突时的最大尝试次数，0 使用默认值。
func WithRedisCASAttempts(n uint) RedisOption {
	return func(b *RedisBackend) {
		if n > 0 {
			b.attempts = n
		}
	}
}

// NewRedisBackend 创建 Redis 后端。client 由调用方管理生命周期。
func NewRedisBackend(client redis.UniversalClient, opts ...RedisOption) (*RedisBackend, error) {
	if client == nil {
		return nil, ErrNilBackend
	}
	b := &RedisBackend{client: client, prefix: DefaultRedisPrefix, attempts: defaultCASAttempts}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *RedisBackend) key(k string) string {
	return b.prefix + k
}

func (b *RedisBackend) Get(ctx context.Context, key string, _ Level) ([]string, error) {
	values, err := b.client.SMembers(ctx, b.key(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xreplica/redis: get %q: %w", key, err)
	}
	return normalize(values), nil
}

func (b *RedisBackend) Put(ctx context.Context, key, value string, level Level) error {
	k := b.key(key)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.SAdd(ctx, k, value)
		return nil
	})
	if err != nil {
		return fmt.Errorf("xreplica/redis: put %q: %w", key, err)
	}
	return b.waitReplicas(ctx, level)
}

func (b *RedisBackend) Delete(ctx context.Context, key string, level Level) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("xreplica/redis: delete %q: %w", key, err)
	}
	return b.waitReplicas(ctx, level)
}

func (b *RedisBackend) Update(ctx context.Context, key string, level Level, modify ModifyFunc) error {
	k := b.key(key)
	written := false
	err := retryConflicts(ctx, b.attempts, func() error {
		written = false
		err := b.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.SMembers(ctx, k).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			next, changed := modify(normalize(current))
			if !changed {
				return nil
			}
			next = normalize(next)
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, k)
				if len(next) > 0 {
					members := make([]any, len(next))
					for i, v := range next {
						members[i] = v
					}
					pipe.SAdd(ctx, k, members...)
				}
				return nil
			})
			written = err == nil
			return err
		}, k)
		if errors.Is(err, redis.TxFailedErr) {
			return ErrConflict
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("xreplica/redis: update %q: %w", key, err)
	}
	if !written {
		return nil
	}
	return b.waitReplicas(ctx, level)
}

// waitReplicas 按级别等待副本确认。主节点自身算一票。
func (b *RedisBackend) waitReplicas(ctx context.Context, level Level) error {
	need := requiredAcks(level, b.replicas)
	if need == 0 {
		return nil
	}
	timeout := time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = max(time.Until(deadline), time.Millisecond)
	}
	// WAIT 不在 redis.Cmdable 中，经 Do 发送。
	acked, err := b.client.Do(ctx, "WAIT", need, timeout.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("xreplica/redis: wait replicas: %w", err)
	}
	if int(acked) < need {
		return fmt.Errorf("%w: %d/%d", ErrUnderReplicated, acked, need)
	}
	return nil
}

// requiredAcks 返回除主节点外需要确认的副本数。
func requiredAcks(level Level, replicas int) int {
	if replicas <= 0 {
		return 0
	}
	switch level {
	case LevelAll:
		return replicas
	case LevelMajority:
		return (replicas + 1) / 2
	default:
		return 0
	}
}

// Close 不关闭外部传入的 client。
func (b *RedisBackend) Close() error { return nil }
