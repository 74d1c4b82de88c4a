// Package xbreaker 基于 [sony/gobreaker/v2] 的熔断器。
//
// 连续失败达到阈值后熔断，Timeout 后进入半开状态放行探测请求。
// 熔断期间的调用立即返回 ErrOpen，不会到达下游。
//
// SuccessIf 决定哪些错误不计入失败，例如比较交换冲突说明下游仍然可用。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
