// Package display holds pure presentation helpers. Nothing here mutates or
// re-derives domain state; time-dependent helpers take the current moment as
// an argument.
package display

import (
	"fmt"
	"strings"
	"time"

	"taskflow/internal/model"
)

func PriorityEmoji(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟡"
	case model.PriorityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

func PriorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "High"
	case model.PriorityMedium:
		return "Medium"
	case model.PriorityLow:
		return "Low"
	default:
		return "None"
	}
}

var weekdayShort = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// RecurrenceLabel renders a recurrence rule, e.g. "Weekly (Mon, Wed)".
// A nil recurrence renders as the empty string.
func RecurrenceLabel(r *model.Recurrence) string {
	if r == nil {
		return ""
	}
	switch r.Type {
	case model.RecurrenceDaily:
		return "Daily"
	case model.RecurrenceWeekly:
		days := make([]string, 0, len(r.Days))
		for _, d := range r.Days {
			if d >= 1 && d <= 7 {
				days = append(days, weekdayShort[d-1])
			}
		}
		if len(days) == 0 {
			return "Weekly"
		}
		return fmt.Sprintf("Weekly (%s)", strings.Join(days, ", "))
	case model.RecurrenceMonthly:
		return "Monthly"
	default:
		return ""
	}
}

// Countdown renders a due date relative to now: "Due in 2 days" for the
// future, "Overdue by 3 hours" for the past.
func Countdown(due, now time.Time) string {
	if due.Before(now) {
		return "Overdue by " + humanDuration(now.Sub(due))
	}
	return "Due in " + humanDuration(due.Sub(now))
}

// FormatTimestamp renders a timestamp as "Today at 3:04 PM", "Tomorrow at
// 3:04 PM" or an absolute date depending on proximity to now.
func FormatTimestamp(t, now time.Time) string {
	clock := t.Format("3:04 PM")
	if sameDay(t, now) {
		return "Today at " + clock
	}
	if sameDay(t, now.AddDate(0, 0, 1)) {
		return "Tomorrow at " + clock
	}
	return t.Format("Jan 2, 2006 at 3:04 PM")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
