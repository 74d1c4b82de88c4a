package xtopic

import "errors"

var (
	// ErrClosed 路由器已关闭。
	ErrClosed = errors.New("xtopic: router closed")

	// ErrEmptyTopic 主题为空。
	ErrEmptyTopic = errors.New("xtopic: topic must not be empty")

	// ErrInvalidTopic 主题含空白或通配符。
	ErrInvalidTopic = errors.New("xtopic: topic contains whitespace or wildcard")

	// ErrNilHandler 处理函数为空。
	ErrNilHandler = errors.New("xtopic: handler is nil")

	// ErrNilConn NATS 连接为空。
	ErrNilConn = errors.New("xtopic: nats connection is nil")
)
