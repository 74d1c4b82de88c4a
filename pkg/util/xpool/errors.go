package xpool

import "errors"

var (
	// ErrNilHandler handler 参数为 nil
	ErrNilHandler = errors.New("xpool: handler cannot be nil")

	// ErrPoolStopped pool 已关闭，无法提交任务
	ErrPoolStopped = errors.New("xpool: pool is stopped")

	// ErrQueueFull 任务队列已满
	ErrQueueFull = errors.New("xpool: queue is full")

	// ErrInvalidWorkers worker 数量无效
	ErrInvalidWorkers = errors.New("xpool: invalid worker count")

	// ErrInvalidQueueSize 队列大小无效
	ErrInvalidQueueSize = errors.New("xpool: invalid queue size")

	// ErrDispatcherNotFound 注册表中找不到任何候选 dispatcher
	ErrDispatcherNotFound = errors.New("xpool: dispatcher not found")

	// ErrDuplicateDispatcher 重复注册同名 dispatcher
	ErrDuplicateDispatcher = errors.New("xpool: dispatcher already registered")
)
