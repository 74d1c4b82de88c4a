// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 基于 Sonyflake 的分布式 ID 生成
//   - xpool: 命名的有界任务分发器，可配置 worker/队列大小、优雅关闭
package util
