package xcron

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldKind 标识表达式中的字段位置
type fieldKind int

const (
	fieldSecond fieldKind = iota
	fieldMinute
	fieldHour
	fieldDayOfMonth
	fieldMonth
	fieldDayOfWeek

	fieldCount
)

// fieldSpec 描述一个字段的取值范围与可用名称
type fieldSpec struct {
	name  string
	min   int
	max   int
	names []string // names[i] 对应取值 min+i
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var weekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var fieldSpecs = [fieldCount]fieldSpec{
	fieldSecond:     {name: "second", min: 0, max: 59},
	fieldMinute:     {name: "minute", min: 0, max: 59},
	fieldHour:       {name: "hour", min: 0, max: 23},
	fieldDayOfMonth: {name: "day-of-month", min: 1, max: 31},
	fieldMonth:      {name: "month", min: 1, max: 12, names: monthNames},
	fieldDayOfWeek:  {name: "day-of-week", min: 1, max: 7, names: weekdayNames},
}

// minNamePrefix 名称前缀的最小长度；完整名称不受此限制。
const minNamePrefix = 3

// bitset 用 uint64 的第 v 位表示取值 v 是否命中，所有字段取值都小于 64。
type bitset uint64

func (b bitset) has(v int) bool {
	return v >= 0 && v < 64 && b&(1<<uint(v)) != 0
}

func (b *bitset) set(v int) {
	*b |= 1 << uint(v)
}

func (b *bitset) setRange(lo, hi int) {
	for v := lo; v <= hi; v++ {
		b.set(v)
	}
}

// parseField 解析单个字段。
//
// "*" 与 "*/N" 只能独占整个字段，不能出现在列表中。
func parseField(spec fieldSpec, text string) (bitset, error) {
	var bits bitset
	if text == "" {
		return 0, fmt.Errorf("%w: %s field is empty", ErrInvalidExpression, spec.name)
	}

	if text == "*" {
		bits.setRange(spec.min, spec.max)
		return bits, nil
	}

	if step, ok := strings.CutPrefix(text, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil {
			return 0, fmt.Errorf("%w: %s field %q", ErrInvalidStep, spec.name, text)
		}
		if n <= 0 || n < spec.min || n > spec.max {
			return 0, fmt.Errorf("%w: %s field %q, step must be in [%d, %d]",
				ErrInvalidStep, spec.name, text, max(spec.min, 1), spec.max)
		}
		for v := spec.min; v <= spec.max; v++ {
			if v%n == 0 {
				bits.set(v)
			}
		}
		return bits, nil
	}

	for token := range strings.SplitSeq(text, ",") {
		lo, hi, err := parseToken(spec, token)
		if err != nil {
			return 0, err
		}
		bits.setRange(lo, hi)
	}
	return bits, nil
}

// parseToken 解析列表中的单个元素：单值或 "lo-hi" 区间。
func parseToken(spec fieldSpec, token string) (lo, hi int, err error) {
	if token == "" {
		return 0, 0, fmt.Errorf("%w: %s field has an empty list element", ErrInvalidExpression, spec.name)
	}

	left, right, isRange := strings.Cut(token, "-")
	lo, err = parseValue(spec, left)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return lo, lo, nil
	}

	hi, err = parseValue(spec, right)
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: %s field %q, %d > %d", ErrInvalidRange, spec.name, token, lo, hi)
	}
	return lo, hi, nil
}

// parseValue 解析数字或名称，并校验取值范围。
func parseValue(spec fieldSpec, text string) (int, error) {
	switch {
	case text == "":
		return 0, fmt.Errorf("%w: %s field has an empty value", ErrInvalidExpression, spec.name)
	case isDigits(text):
		v, err := strconv.Atoi(text)
		if err != nil || v < spec.min || v > spec.max {
			return 0, fmt.Errorf("%w: %s field %q not in [%d, %d]",
				ErrOutOfRange, spec.name, text, spec.min, spec.max)
		}
		return v, nil
	case isLetters(text):
		if spec.names == nil {
			return 0, fmt.Errorf("%w: %s field does not accept names, got %q",
				ErrInvalidExpression, spec.name, text)
		}
		if v, ok := lookupName(spec, text); ok {
			return v, nil
		}
		return 0, fmt.Errorf("%w: %s field %q", ErrUnknownName, spec.name, text)
	default:
		return 0, fmt.Errorf("%w: %s field %q", ErrInvalidExpression, spec.name, text)
	}
}

// lookupName 按大小写不敏感的前缀匹配名称。
// 前缀至少 3 个字母，或与完整名称等长。3 个字母的前缀在月份和星期中都是唯一的。
func lookupName(spec fieldSpec, text string) (int, bool) {
	lower := strings.ToLower(text)
	for i, name := range spec.names {
		if !strings.HasPrefix(name, lower) {
			continue
		}
		if len(lower) >= minNamePrefix || len(lower) == len(name) {
			return spec.min + i, true
		}
	}
	return 0, false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return s != ""
}
