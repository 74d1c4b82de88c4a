package xcron

import "errors"

// 解析错误。所有错误都在 [Parse] 阶段返回，并附带出错的字段名与原始片段。
var (
	// ErrInvalidExpression 表达式或字段的语法不合法（空字段、非法字符等）。
	ErrInvalidExpression = errors.New("xcron: invalid expression")

	// ErrFieldCount 字段数量既不是 3 也不是 6。
	ErrFieldCount = errors.New("xcron: expected 3 or 6 fields")

	// ErrOutOfRange 数值超出字段取值范围。
	ErrOutOfRange = errors.New("xcron: value out of range")

	// ErrInvalidStep "*/N" 中的 N 不合法（N <= 0 或超出字段范围）。
	ErrInvalidStep = errors.New("xcron: invalid step")

	// ErrInvalidRange 区间下界大于上界。
	ErrInvalidRange = errors.New("xcron: invalid range")

	// ErrUnknownName 月份或星期名称无法识别。
	ErrUnknownName = errors.New("xcron: unknown name")
)
