// Package xmember 维护集群成员视图，并按成员年龄确定每个角色的领导者。
//
// Registry 为每个角色（以及代表全体成员的 RoleAll）维护一个按 (Age, Address)
// 排序的有序集合，集合第一个成员即该角色的领导者。所有节点看到同一组成员时
// 选出同一个领导者，不需要额外的共识轮次。
//
// 成员变更以 Event 流的形式从 Source 输入：
//   - StaticSource：配置文件中的固定成员，用于单机与测试
//   - EtcdSource：以租约注册本节点，Age 取注册键的 CreateRevision
//
// 不可达事件只记录日志，不移除成员；成员只在 EventMemberRemoved 时离开视图。
package xmember
