package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 常用属性 Key 常量
// =============================================================================

const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"

	// 调度相关
	KeyNode   = "node"
	KeyWorker = "worker"
	KeyTickID = "tick_id"
	KeyTopic  = "topic"
	KeyGroup  = "group"
	KeyKey    = "key"
	KeyRoles  = "roles"
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性。err 为 nil 时返回空属性（会被 handler 忽略）。
//
//	if err != nil {
//	    logger.Error(ctx, "lock failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Component 创建组件名称属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名称属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Node 创建节点地址属性
func Node(addr string) slog.Attr {
	return slog.String(KeyNode, addr)
}

// Worker 创建 worker 名称属性
func Worker(name string) slog.Attr {
	return slog.String(KeyWorker, name)
}

// TickID 创建 tick id 属性
func TickID(id string) slog.Attr {
	return slog.String(KeyTickID, id)
}

// Topic 创建主题属性
func Topic(topic string) slog.Attr {
	return slog.String(KeyTopic, topic)
}

// Group 创建订阅组属性
func Group(group string) slog.Attr {
	return slog.String(KeyGroup, group)
}

// Key 创建存储键属性
func Key(key string) slog.Attr {
	return slog.String(KeyKey, key)
}

// Roles 创建角色列表属性
func Roles(roles []string) slog.Attr {
	return slog.Any(KeyRoles, roles)
}
