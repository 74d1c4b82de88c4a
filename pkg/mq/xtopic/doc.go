// Package xtopic 提供带消费组语义的主题发布订阅。
//
// 两类受众互不相交：
//   - 普通订阅（group 为空）接收该主题上所有 onePerGroup=false 的消息
//   - 组订阅接收 onePerGroup=true 的消息，每个组恰好一个成员收到（随机选取）
//
// 每个订阅内按发送顺序逐条投递，订阅之间没有顺序保证。
// 投递是尽力而为的：订阅队列满时丢弃并记录告警，不重试。
//
// LocalRouter 在进程内分发，用于单机模式与测试；
// NATSRouter 以 NATS 普通主题和队列组实现同样的语义。
package xtopic
