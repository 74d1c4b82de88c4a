package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/omeyang/xtick/pkg/observability/xlog"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

var _ io.Closer = (*Pool[int])(nil)

// Pool 泛型 worker pool，New 返回后 worker 已启动。
type Pool[T any] struct {
	handler func(T)
	queue   chan T
	logger  xlog.Logger
	name    string

	mu      sync.RWMutex // 保护 stopped 与 queue 的关闭
	stopped bool
	wg      sync.WaitGroup
	done    chan struct{}
	workers int
}

// New 创建并启动 worker pool。
//
// workers 取值 [1, 65536]，queueSize 取值 [1, 16777216]。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	o := options{logger: xlog.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	p := &Pool[T]{
		handler: handler,
		queue:   make(chan T, queueSize),
		logger:  o.logger,
		name:    o.name,
		done:    make(chan struct{}),
		workers: workers,
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Stack(context.Background(), "xpool: task panic recovered",
				slog.String("pool", p.name),
				slog.String("task_type", fmt.Sprintf("%T", task)),
				slog.Any("panic", r))
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown 停止接收新任务并等待已入队任务完成。
// ctx 到期时立即返回 ctx 错误，残留 worker 继续处理直到队列耗尽，可通过 Done 等待。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 等价于 Shutdown(context.Background())
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Done 返回所有 worker 退出后关闭的 channel
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// Workers 返回 worker 数量
func (p *Pool[T]) Workers() int {
	return p.workers
}

// QueueSize 返回队列容量
func (p *Pool[T]) QueueSize() int {
	return cap(p.queue)
}

// Pending 返回队列中尚未被取走的任务数
func (p *Pool[T]) Pending() int {
	return len(p.queue)
}
