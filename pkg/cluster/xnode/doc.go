// Package xnode 将配置装配为一个运行中的 xtick 节点。
//
// 一个节点包含：
//   - 成员视图（静态列表或 etcd 租约注册）
//   - 本地 tick 生成器与 leader 门控的协调者
//   - 按配置创建的 worker，任务体由 xworker.Catalog 提供
//   - 复制存储、主题路由、命名 dispatcher 以及它们依赖的外部连接
//
// 基本用法：
//
//	catalog := xworker.NewCatalog()
//	catalog.MustRegister("report", xworker.JobFunc(report))
//
//	node, err := xnode.New(cfg, catalog, xnode.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	return node.Run(ctx) // ctx 取消后按逆序停止
//
// 同进程内多个节点可以通过 WithRouter、WithReplicaBackend、WithMembershipSource
// 共享路由器、存储与成员来源，组成测试用的集群。
package xnode
