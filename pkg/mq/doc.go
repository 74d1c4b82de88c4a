// Package mq 提供消息分发相关的子包。
//
// 子包列表：
//   - xtopic: 基于主题的 tick 发布订阅，支持进程内和 NATS 两种路由
package mq
