package xcron

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule 解析后的调度表达式，不可变，可在多个 goroutine 间共享。
type Schedule struct {
	expr   string
	fields [fieldCount]bitset
}

// 编译时检查 Schedule 实现 cron.Schedule
var _ cron.Schedule = (*Schedule)(nil)

// Parse 解析调度表达式。
//
// 支持三段式 "秒 分 时" 和六段式 "秒 分 时 日 月 周"，字段间以空格或制表符分隔。
// 任一字段不合法时返回包装了具体原因的错误（ErrOutOfRange、ErrInvalidStep 等），
// 可使用 errors.Is 判断。
func Parse(text string) (*Schedule, error) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	switch len(tokens) {
	case 3:
		tokens = append(tokens, "*", "*", "*")
	case int(fieldCount):
	default:
		return nil, fmt.Errorf("%w: got %d in %q", ErrFieldCount, len(tokens), text)
	}

	s := &Schedule{expr: strings.Join(tokens, " ")}
	for i, token := range tokens {
		bits, err := parseField(fieldSpecs[i], token)
		if err != nil {
			return nil, err
		}
		s.fields[i] = bits
	}
	return s, nil
}

// MustParse 与 [Parse] 相同，但解析失败时 panic。
// 仅用于静态声明的表达式，例如包级变量。
func MustParse(text string) *Schedule {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Matches 判断时间 t（按其自身时区解释）是否命中全部六个字段。
func (s *Schedule) Matches(t time.Time) bool {
	return s.fields[fieldSecond].has(t.Second()) &&
		s.fields[fieldMinute].has(t.Minute()) &&
		s.fields[fieldHour].has(t.Hour()) &&
		s.fields[fieldDayOfMonth].has(t.Day()) &&
		s.fields[fieldMonth].has(int(t.Month())) &&
		s.fields[fieldDayOfWeek].has(isoWeekday(t.Weekday()))
}

// MatchesMillis 判断 Unix 毫秒时间戳在时区 loc 下是否命中。loc 为 nil 时使用 time.Local。
func (s *Schedule) MatchesMillis(ms int64, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	return s.Matches(time.UnixMilli(ms).In(loc))
}

// String 返回规范化后的表达式（单空格分隔的六段式）。
func (s *Schedule) String() string {
	return s.expr
}

// isoWeekday 将 time.Weekday（周日=0）转换为 1=周一 ... 7=周日。
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}
