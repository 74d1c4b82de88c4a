package xreplica

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend 进程内后端，忽略一致性级别。
//
// 多个 Map 共享同一个 MemoryBackend 即可模拟同进程内的多个"节点"。
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]string
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend 创建进程内后端。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]string)}
}

func (b *MemoryBackend) Get(_ context.Context, key string, _ Level) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.data[key]), nil
}

func (b *MemoryBackend) Put(_ context.Context, key, value string, _ Level) error {
	b.mu.Lock()
	b.data[key] = []string{value}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string, _ Level) error {
	b.mu.Lock()
	delete(b.data, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Update(_ context.Context, key string, _ Level, modify ModifyFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, changed := modify(slices.Clone(b.data[key]))
	if !changed {
		return nil
	}
	if next = normalize(next); len(next) == 0 {
		delete(b.data, key)
		return nil
	}
	b.data[key] = next
	return nil
}

// Keys 返回当前所有键，便于调试和测试。
func (b *MemoryBackend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (b *MemoryBackend) Close() error { return nil }
