// Package xworker 实现按调度表达式执行任务的 worker 引擎。
//
// 每个 Worker 拥有一个 mailbox goroutine，一次只处理一个信号：
//
//	Idle → Matching → Locked-Running → Idle
//
// 处理 tick 的顺序：
//
//  1. 过期检查：now - ts >= 30s 的 tick 丢弃
//  2. 单调检查：已记录的 last-fired 时间戳 >= tick 时间戳时丢弃
//  3. 调度匹配：xcron 表达式不匹配时丢弃
//  4. 以新生成的 run id 获取执行锁，成功后更新 last-fired 并把任务提交到 xpool
//  5. 获取失败说明上一次执行仍在进行，记录日志并丢弃，不积压
//
// 普通 worker 与单例 worker 使用同一个引擎，区别只在 StateBackend：
//
//   - LocalState: 进程内原子槽位，订阅 TICK-ALL 或本地 Generator
//   - ReplicatedState: last-fired 与锁存放在 xreplica.Map，锁默认为 xdlock.Weak，
//     订阅 TICK 并以任务名为消费组，每组每个 tick 只有一个节点收到
//
// RunOnStart 启动时投递一次独立的首次运行信号，跳过过期、单调与调度检查，
// 但仍然需要获得锁。任务可通过 FirstRun(ctx) 区分首次运行。
package xworker
