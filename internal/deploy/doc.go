// Package deploy 提供节点部署相关的共享定义：节点角色集合与 worker 运行模式。
//
// 角色决定 worker 是否在本节点激活：worker 声明的角色为空、包含 "*"，
// 或与节点角色有交集时激活。节点角色来自配置，可被环境变量 XTICK_ROLES 覆盖。
package deploy
