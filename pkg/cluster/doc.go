// Package cluster 提供集群 tick 分发相关的子包。
//
// 子包列表：
//   - xmember: 集群成员与角色，支持静态配置和 etcd 租约两种来源
//   - xtick: tick 生成与集群内协调分发
//   - xworker: 按 cron 表达式消费 tick 的工作者，支持单例模式
//   - xnode: 按配置组装上述组件的节点
package cluster
