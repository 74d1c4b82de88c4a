// Package xdlock 提供以持有者标识的可重入 TTL 锁。
//
// # 弱锁
//
// Weak 建立在 xreplica.Map 上：锁键的值集合保存持有者记录 (owner, 过期时间)。
// TryLock 发出一次原子修改，仅当键不存在、集合中已有本持有者的记录、
// 或全部记录都已过期时，将值集合替换为新记录；随后按锁一致性读取，
// 读到的集合包含这条记录才算获得锁。
//
// 弱锁不保证强一致：复制延迟、分区或时钟偏差都可能让两个持有者同时认为自己持锁。
// 返回 false 只表示"不能确定持有"，不是"锁被占用"的证明。
// 调用方必须容忍偶发的重复执行。
//
// # 强锁
//
// 需要更强互斥的场景可改用：
//
//	| 实现 | 后端 | 机制 |
//	|------|------|------|
//	| RedisLocker | Redis (redsync) | SET NX PX + 按值续期/释放 |
//	| EtcdLocker | etcd | 租约 + 事务比较持有者 |
//
// 三者都实现 Locker，可按配置互换。
package xdlock
