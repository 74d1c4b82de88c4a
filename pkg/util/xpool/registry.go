package xpool

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// 约定的 dispatcher 名称
const (
	// DefaultDispatcher 兜底 dispatcher
	DefaultDispatcher = "default"
	// WorkerDispatcher worker 任务体使用的 dispatcher
	WorkerDispatcher = "worker-dispatcher"
)

// Executor 任务执行上下文：把一个函数交给后台执行。
type Executor interface {
	Submit(task func()) error
}

// Dispatcher 执行 func() 任务的 pool
type Dispatcher = Pool[func()]

var _ Executor = (*Dispatcher)(nil)

// NewDispatcher 创建执行 func() 的 pool
func NewDispatcher(workers, queueSize int, opts ...Option) (*Dispatcher, error) {
	return New(workers, queueSize, func(task func()) { task() }, opts...)
}

// DispatcherConfig 单个 dispatcher 的配置
type DispatcherConfig struct {
	Workers   int `koanf:"workers" json:"workers"`
	QueueSize int `koanf:"queue_size" json:"queue_size"`
}

// Registry 命名 dispatcher 注册表，并发安全。
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*Dispatcher
	order []string
	opts  []Option
}

// NewRegistry 创建注册表，opts 作用于之后注册的每个 dispatcher。
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		pools: make(map[string]*Dispatcher),
		opts:  opts,
	}
}

// Register 创建并登记名为 name 的 dispatcher。
func (r *Registry) Register(name string, cfg DispatcherConfig) (*Dispatcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDispatcher, name)
	}
	opts := append(slices.Clone(r.opts), WithName(name))
	d, err := NewDispatcher(cfg.Workers, cfg.QueueSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("xpool: dispatcher %s: %w", name, err)
	}
	r.pools[name] = d
	r.order = append(r.order, name)
	return d, nil
}

// Lookup 按名称查找 dispatcher
func (r *Registry) Lookup(name string) (*Dispatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.pools[name]
	return d, ok
}

// Resolve 依次查找 names，都不存在时回退到 [DefaultDispatcher]。
func (r *Registry) Resolve(names ...string) (Executor, error) {
	for _, name := range append(slices.Clip(names), DefaultDispatcher) {
		if name == "" {
			continue
		}
		if d, ok := r.Lookup(name); ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %v and %q", ErrDispatcherNotFound, names, DefaultDispatcher)
}

// Names 按注册顺序返回 dispatcher 名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Shutdown 按注册的逆序关闭所有 dispatcher，聚合返回错误。
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	names := slices.Clone(r.order)
	r.mu.RUnlock()

	var errs []error
	for _, name := range slices.Backward(names) {
		d, _ := r.Lookup(name)
		if err := d.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("xpool: shutdown %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
