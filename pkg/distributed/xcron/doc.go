// Package xcron 提供秒级 cron 风格的调度表达式解析与匹配。
//
// # 概述
//
// xcron 解析形如 "秒 分 时 [日 月 周]" 的调度表达式，得到不可变的 [Schedule]，
// 用于判断某个 tick 时间戳是否命中任务的调度。表达式错误在解析时一次性暴露，
// 匹配阶段永远不会失败。
//
// # 表达式格式
//
// 支持两种形式：
//
//   - 三段式："<秒> <分> <时>"，日/月/周默认 "*"
//   - 六段式："<秒> <分> <时> <日> <月> <周>"
//
// 字段之间使用空格或制表符分隔。各字段取值范围：
//
//	秒 0-59  分 0-59  时 0-23  日 1-31  月 1-12  周 1-7（1=周一，7=周日）
//
// 每个字段支持以下写法：
//
//   - "*"：任意值
//   - "*/N"：取值能被 N 整除（N > 0 且在字段范围内）
//   - "a,b,lo-hi"：值与闭区间组成的列表（lo <= hi）
//
// 月与周字段额外接受英文名称（大小写不敏感），可以写全称或至少 3 个字母的前缀，
// 也可以组成区间，例如 "mon-fri"、"Jan-Mar"、"December"。
//
// # 快速开始
//
//	s := xcron.MustParse("*/5 * *")
//	if s.Matches(time.Now()) {
//	    // 每 5 秒命中一次
//	}
//
//	s, err := xcron.Parse("0 30 9 * * mon-fri")
//	if err != nil {
//	    return err
//	}
//
// # 与 robfig/cron 的关系
//
// [Schedule] 实现了 [cron.Schedule] 接口（Next 方法），可直接交给 robfig/cron
// 调度，也可用于列出未来若干次触发时间。
//
// [cron.Schedule]: https://pkg.go.dev/github.com/robfig/cron/v3#Schedule
package xcron
