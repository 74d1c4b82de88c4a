// Package xid 提供基于 Sonyflake 的分布式唯一 ID 生成器。
//
// xtick 中的 tick id、复制存储的请求关联 id、worker 每次运行的锁持有者 id
// 都由 xid 生成。ID 对外以 base36 字符串形式出现（12-13 个字符），
// 同一节点生成的 ID 按时间递增。
//
// # ID 结构
//
//	39 bits - 时间戳（10ms 为单位）
//	 8 bits - 序列号（同一时间单位内最多 256 个 ID）
//	16 bits - 机器 ID
//
// # 使用方式
//
// xid 不提供全局生成器，由节点装配时创建并注入各组件：
//
//	gen, err := xid.NewGenerator(xid.WithMachineIDFrom("10.0.0.7:2551"))
//	if err != nil {
//	    return err
//	}
//	tickID, err := gen.NewString()
//
// # 机器 ID
//
// 未显式指定时由 [DefaultMachineID] 决定：XTICK_MACHINE_ID 环境变量，否则主机名哈希。
// 集群中每个节点的成员地址天然唯一，推荐使用 [WithMachineIDFrom] 由地址派生。
package xid
