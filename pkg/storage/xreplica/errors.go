package xreplica

import "errors"

var (
	// ErrNilBackend 未提供 Backend。
	ErrNilBackend = errors.New("xreplica: nil backend")

	// ErrEmptyNamespace 命名空间为空。
	ErrEmptyNamespace = errors.New("xreplica: empty namespace")

	// ErrEmptyKey 键为空。
	ErrEmptyKey = errors.New("xreplica: empty key")

	// ErrNilModify Update 未提供修改函数。
	ErrNilModify = errors.New("xreplica: nil modify func")

	// ErrClosed Map 已关闭。
	ErrClosed = errors.New("xreplica: map closed")

	// ErrQueueFull 请求队列已满，请求未提交。
	ErrQueueFull = errors.New("xreplica: request queue full")

	// ErrTimeout 在一致性超时内未完成。
	ErrTimeout = errors.New("xreplica: timeout")

	// ErrBackendUnavailable 熔断器打开，后端暂不可用。
	ErrBackendUnavailable = errors.New("xreplica: backend unavailable")

	// ErrConflict 比较交换冲突，重试耗尽后返回。
	ErrConflict = errors.New("xreplica: concurrent modification")

	// ErrUnderReplicated 写入未在超时内复制到要求数量的副本。
	ErrUnderReplicated = errors.New("xreplica: write not acknowledged by enough replicas")

	// ErrInvalidValue 存储的值无法解码。
	ErrInvalidValue = errors.New("xreplica: invalid stored value")
)
