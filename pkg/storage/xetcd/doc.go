// Package xetcd 提供 etcd 客户端封装。
//
// xetcd 是 xtick 的共享存储层，提供：
//   - 带版本信息的 KV 操作 (Get/Put/Delete/List)
//   - 基于 ModRevision / CreateRevision 的比较交换 (CompareAndPut/CompareAndDelete)
//   - 租约注册与自动续约 (Register)，用于成员注册
//   - Watch 与带退避重连的 WatchWithRetry
//
// 成员来源 (xmember.EtcdSource)、复制 Map 后端 (xreplica.EtcdBackend)
// 与 etcd 锁 (xdlock.EtcdLocker) 共享同一个 Client。
//
// # 设计边界
//
// 事务、会话等高级能力通过 RawClient() 获取原生客户端自行使用。
package xetcd
