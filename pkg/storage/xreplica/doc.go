// Package xreplica 提供集群复制的多值键值 Map。
//
// 每个键保存一个值集合（并发写入者可能各自留下一个值），读取方需要自行合并，
// 例如 xdlock 的弱锁按过期时间协调多条锁记录。
//
// # 请求模型
//
// 同一个 Map 的所有请求进入单个有序队列，由一个 goroutine 依次应用到 Backend：
//   - Put / Delete / Update 只负责提交，返回带关联 ID 的 Tag，完成结果交给 WithWriteHook
//   - Get / GetWith 同样经过队列（保证读到此前提交的写），调用方阻塞在按关联 ID 建立的
//     future 上，超时返回 ErrTimeout
//
// # 一致性
//
// Consistency 由级别和超时组成。普通读写默认 Majority/5s，锁相关默认 Majority/10s。
// 各 Backend 对级别的解释不同，见各自文档。
//
// # 后端
//
//   - MemoryBackend: 进程内，单节点和测试使用
//   - RedisBackend: Redis SET + WATCH/MULTI 乐观事务
//   - EtcdBackend: JSON 编码的值集合 + ModRevision 比较交换
//   - JetStreamBackend: NATS JetStream KV + revision 比较交换
//
// 所有后端调用经过 xbreaker 熔断，比较交换冲突由 xretry 重试。
package xreplica
