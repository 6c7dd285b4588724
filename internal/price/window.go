package price

import (
	"strings"
	"time"
)

// Window is the resolved, inclusive time range a query runs against.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParsePeriod normalizes a period keyword. Unknown or empty keywords resolve
// to DefaultPeriod.
func ParsePeriod(s string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p
	default:
		return DefaultPeriod
	}
}

// ResolveWindow turns a period keyword or an explicit range into a Window.
// When both start and end are given they are returned as-is and period is
// ignored. Otherwise the window ends at now and starts one period back.
func ResolveWindow(now time.Time, period Period, start, end *time.Time) Window {
	if start != nil && end != nil {
		return Window{Start: *start, End: *end}
	}
	return Window{Start: Lookback(now, period), End: now}
}

// Lookback returns the instant one period before t. Month and year steps use
// calendar arithmetic, clamping the day to the end of the target month.
func Lookback(t time.Time, period Period) time.Time {
	switch ParsePeriod(string(period)) {
	case PeriodWeek:
		return t.AddDate(0, 0, -7)
	case PeriodMonth:
		return subMonths(t, 1)
	case PeriodYear:
		return subMonths(t, 12)
	default:
		return t.AddDate(0, 0, -1)
	}
}

// subMonths moves t back n months keeping the wall clock time. time.AddDate
// normalizes overflowing days into the next month (Mar 31 - 1 month = Mar 3),
// so the day is clamped here instead.
func subMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}
