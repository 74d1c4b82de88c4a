// Package xconf 提供基于 koanf 的配置加载与热重载。
//
// xconf 只负责文件/字节数据的加载、反序列化和变更监视；默认值与校验
// 由持有配置结构体的包负责（如 xnode.Config 的 Validate）。
//
// # 支持的格式
//
//   - YAML（.yaml, .yml）
//   - JSON（.json）
//
// # 并发安全
//
// Reload 解析成功后才替换内部 koanf 实例，解析失败时保留旧配置。
// Client() 返回的是快照，Reload 之后需要重新获取。
//
// # 配置监视
//
// [Watch] 监视配置文件所在目录（兼容 vim/emacs 的原子写入），内置防抖。
// xtickd 用它在运行时调整日志级别。
package xconf
