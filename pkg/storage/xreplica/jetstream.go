package xreplica

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket JetStreamBackend 默认 KV bucket。
const DefaultBucket = "xtick-replica"

// JetStreamConfig JetStream KV bucket 配置。
type JetStreamConfig struct {
	Bucket string `koanf:"bucket"`

	// Replicas bucket 的流副本数，一致性由 JetStream 流复制保证，读写忽略 Level。
	Replicas int `koanf:"replicas"`

	// Memory 使用内存存储，默认文件存储。
	Memory bool `koanf:"memory"`
}

// JetStreamBackend 以 NATS JetStream KV 保存值集合（JSON 数组）。
// Update 使用 KV revision 做比较交换。
type JetStreamBackend struct {
	kv       jetstream.KeyValue
	attempts uint
}

var _ Backend = (*JetStreamBackend)(nil)

// NewJetStreamBackend 创建或更新 bucket 后返回后端。
func NewJetStreamBackend(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig) (*JetStreamBackend, error) {
	if js == nil {
		return nil, ErrNilBackend
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	storage := jetstream.FileStorage
	if cfg.Memory {
		storage = jetstream.MemoryStorage
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		Storage:  storage,
		Replicas: max(cfg.Replicas, 1),
		History:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("xreplica/jetstream: create bucket %q: %w", cfg.Bucket, err)
	}
	return NewJetStreamBackendFromKV(kv)
}

// NewJetStreamBackendFromKV 使用已有的 KV bucket。
func NewJetStreamBackendFromKV(kv jetstream.KeyValue) (*JetStreamBackend, error) {
	if kv == nil {
		return nil, ErrNilBackend
	}
	return &JetStreamBackend{kv: kv, attempts: defaultCASAttempts}, nil
}

// kvKey KV 键只允许 [-/_=.a-zA-Z0-9]，其它字符替换为 '_'。
func kvKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '/', r == '_', r == '=', r == '.':
			return r
		default:
			return '_'
		}
	}, k)
}

// get 返回值集合与 revision，键不存在时 revision 为 0。
func (b *JetStreamBackend) get(ctx context.Context, key string) ([]string, uint64, error) {
	entry, err := b.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	values, err := decodeValues(entry.Value())
	if err != nil {
		return nil, 0, err
	}
	return values, entry.Revision(), nil
}

func (b *JetStreamBackend) Get(ctx context.Context, key string, _ Level) ([]string, error) {
	values, _, err := b.get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("xreplica/jetstream: get %q: %w", key, err)
	}
	return values, nil
}

func (b *JetStreamBackend) Put(ctx context.Context, key, value string, _ Level) error {
	data, err := encodeValues([]string{value})
	if err != nil {
		return err
	}
	if _, err := b.kv.Put(ctx, kvKey(key), data); err != nil {
		return fmt.Errorf("xreplica/jetstream: put %q: %w", key, err)
	}
	return nil
}

func (b *JetStreamBackend) Delete(ctx context.Context, key string, _ Level) error {
	err := b.kv.Delete(ctx, kvKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("xreplica/jetstream: delete %q: %w", key, err)
	}
	return nil
}

func (b *JetStreamBackend) Update(ctx context.Context, key string, _ Level, modify ModifyFunc) error {
	k := kvKey(key)
	err := retryConflicts(ctx, b.attempts, func() error {
		current, rev, err := b.get(ctx, key)
		if err != nil {
			return err
		}
		next, changed := modify(current)
		if !changed {
			return nil
		}

		next = normalize(next)
		switch {
		case len(next) == 0 && rev == 0:
			return nil
		case len(next) == 0:
			err = b.kv.Delete(ctx, k, jetstream.LastRevision(rev))
		default:
			var data []byte
			if data, err = encodeValues(next); err != nil {
				return err
			}
			if rev == 0 {
				_, err = b.kv.Create(ctx, k, data)
			} else {
				_, err = b.kv.Update(ctx, k, data, rev)
			}
		}
		// revision 不匹配与 Create 键已存在都报告为 ErrKeyExists（wrong last sequence）
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrConflict
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("xreplica/jetstream: update %q: %w", key, err)
	}
	return nil
}

// Close 不关闭外部的 NATS 连接。
func (b *JetStreamBackend) Close() error { return nil }
