// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xreplica: 带一致性级别的复制多值 Map，支持内存、Redis、etcd、JetStream 后端
//   - xetcd: etcd 客户端封装
//
// 设计原则：
//   - 提供统一的接口抽象，支持多种存储后端
//   - 内置可观测性与熔断
package storage
