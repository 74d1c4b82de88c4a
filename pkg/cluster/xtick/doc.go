// Package xtick 产生周期性的逻辑 tick，并由集群领导者把 tick 扇出到全集群。
//
// 数据流：
//
//	Generator ──本地广播──▶ Coordinator ──(仅领导者)──▶ xtopic.Router
//	                                          ├─ TopicTick     每组一份，单例任务
//	                                          └─ TopicTickAll  全部普通订阅者
//
// Generator 在初始延迟（等待集群成形）后按固定周期触发，底层由 robfig/cron
// 驱动，SkipIfStillRunning 保证同一时刻只有一次发射。
//
// Coordinator 只在本节点是 RoleAll 领导者时转发，并且转发时生成新的 tick
// （新 ID、新时间戳），不复用本地 tick。上一次转发仍在进行时新的本地 tick
// 被丢弃并告警。
package xtick
