package xtopic

import (
	"context"
	"strings"
)

// Message 一条投递给订阅者的消息。
type Message struct {
	Topic   string
	Group   string // 组投递时为接收者所在的组
	Payload []byte
}

// Handler 处理一条消息。同一订阅上的调用是串行的。
type Handler func(ctx context.Context, msg Message)

// Subscription 一个活动订阅。
type Subscription interface {
	Topic() string
	Group() string
	// Unsubscribe 取消订阅，可重复调用。
	Unsubscribe() error
}

// Router 主题路由器。
type Router interface {
	// Publish 发布消息。onePerGroup 为 true 时每个组只投递给一个成员，
	// 否则投递给所有普通订阅者。
	Publish(ctx context.Context, topic string, payload []byte, onePerGroup bool) error

	// Subscribe 订阅主题。group 为空表示普通订阅。
	// ctx 取消时订阅自动结束。
	Subscribe(ctx context.Context, topic, group string, h Handler) (Subscription, error)

	// Close 取消全部订阅并等待投递 goroutine 退出。
	Close() error
}

// 编译期接口检查。
var (
	_ Router = (*LocalRouter)(nil)
	_ Router = (*NATSRouter)(nil)
)

func validateTopic(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if strings.ContainsAny(topic, " \t\r\n*>") {
		return ErrInvalidTopic
	}
	return nil
}
