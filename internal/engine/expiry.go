package engine

import "time"

// settlementDay 返回该月台指期结算日（第三个星期三）。
func settlementDay(year int, month time.Month, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(time.Wednesday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+14)
}

// DaysToExpiry 距最近一个未到期结算日的天数，按日历日计。
// 当日即结算日时返回 0。
func DaysToExpiry(t time.Time) int {
	settle := settlementDay(t.Year(), t.Month(), t.Location())
	if t.After(settle.AddDate(0, 0, 1).Add(-time.Nanosecond)) {
		next := t.AddDate(0, 1, 0)
		settle = settlementDay(next.Year(), next.Month(), t.Location())
	}

	days := int(settle.Sub(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
