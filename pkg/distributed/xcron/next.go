package xcron

import "time"

// searchYears Next 向后搜索的最大年数，超出视为永不触发（例如 "0 0 0 31 2 *"）。
const searchYears = 5

// Next 返回严格晚于 t 的下一个命中时间（秒精度，时区与 t 相同）。
// 在 searchYears 年内找不到时返回零值 time.Time，robfig/cron 会据此不再调度该任务。
//
// 搜索按 月 → 日 → 时 → 分 → 秒 逐级跳过不命中的区间。每一步都只向前推进，
// 夏令时切换不会导致回退。
func (s *Schedule) Next(t time.Time) time.Time {
	t = t.Truncate(time.Second).Add(time.Second)
	loc := t.Location()
	limit := t.AddDate(searchYears, 0, 0)

	for t.Before(limit) {
		if !s.fields[fieldMonth].has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.fields[fieldDayOfMonth].has(t.Day()) || !s.fields[fieldDayOfWeek].has(isoWeekday(t.Weekday())) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.fields[fieldHour].has(t.Hour()) {
			t = t.Add(time.Hour - time.Duration(t.Minute())*time.Minute - time.Duration(t.Second())*time.Second)
			continue
		}
		if !s.fields[fieldMinute].has(t.Minute()) {
			t = t.Add(time.Minute - time.Duration(t.Second())*time.Second)
			continue
		}
		if !s.fields[fieldSecond].has(t.Second()) {
			t = t.Add(time.Second)
			continue
		}
		return t
	}
	return time.Time{}
}

// NextN 从 from 开始列出接下来最多 n 个命中时间。
func (s *Schedule) NextN(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, max(n, 0))
	for range n {
		from = s.Next(from)
		if from.IsZero() {
			break
		}
		out = append(out, from)
	}
	return out
}
