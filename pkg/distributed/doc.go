// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xcron: 六字段 cron 表达式解析与毫秒级匹配
//   - xdlock: 单例任务的集群锁，支持复制 Map、Redis、etcd 后端
//
// 设计原则：
//   - 锁接口与后端解耦，单例任务不感知锁的实现
//   - 锁带租期，持有者崩溃后自动失效
package distributed
