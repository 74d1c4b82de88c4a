package xdlock

import "errors"

// 预定义错误。
var (
	// ErrNilMap 弱锁的复制 Map 为空。
	ErrNilMap = errors.New("xdlock: replicated map is nil")

	// ErrNilClient 客户端为空。
	ErrNilClient = errors.New("xdlock: client is nil")

	// ErrEmptyKey 锁 key 为空。
	ErrEmptyKey = errors.New("xdlock: key must not be empty")

	// ErrEmptyOwner 持有者标识为空。
	ErrEmptyOwner = errors.New("xdlock: owner must not be empty")

	// ErrInvalidTTL TTL 必须为正数。
	ErrInvalidTTL = errors.New("xdlock: ttl must be positive")

	// ErrLockFailed 后端执行加锁失败（非锁竞争）。
	ErrLockFailed = errors.New("xdlock: failed to acquire lock")
)
