// Package recurrence computes the next occurrence of a repeating task.
package recurrence

import (
	"sort"
	"time"

	"github.com/yukikurage/teamflow/internal/models"
)

// NextDueDate returns the due date of the occurrence following a completion.
//
// On-schedule rules advance from lastDue (or completedAt when the task had no
// due date) on the UTC calendar and return UTC midnight, so due dates stay
// anchored to days. On-completion rules advance from completedAt in its own
// location and keep the time of day.
func NextDueDate(cfg models.RecurrenceConfig, lastDue *time.Time, completedAt time.Time) time.Time {
	if cfg.Type == models.RecurOnCompletion {
		return advance(cfg, completedAt)
	}

	base := completedAt
	if lastDue != nil && !lastDue.IsZero() {
		base = *lastDue
	}
	y, m, d := base.UTC().Date()
	// Noon keeps day arithmetic away from midnight boundaries.
	next := advance(cfg, time.Date(y, m, d, 12, 0, 0, 0, time.UTC))
	ny, nm, nd := next.Date()
	return time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
}

// ShouldRecur reports whether completing task should fork a successor.
// Count end conditions are not evaluated.
func ShouldRecur(task *models.Task, now time.Time) bool {
	if task == nil || task.Recurrence == nil {
		return false
	}
	end := task.Recurrence.EndCondition
	if end != nil && end.Type == models.EndOnDate && end.Date != nil && now.After(*end.Date) {
		return false
	}
	return true
}

func advance(cfg models.RecurrenceConfig, base time.Time) time.Time {
	interval := cfg.Interval
	if interval < 1 {
		interval = 1
	}

	switch cfg.Frequency {
	case models.FrequencyWeekly:
		days := normalizeDays(cfg.DaysOfWeek)
		if len(days) == 0 {
			return base.AddDate(0, 0, 7*interval)
		}
		current := base.Weekday()
		for _, day := range days {
			if day > current {
				return base.AddDate(0, 0, int(day-current))
			}
		}
		diff := (7 - int(current)) + int(days[0]) + (interval-1)*7
		return base.AddDate(0, 0, diff)
	case models.FrequencyMonthly:
		return addMonthsClamped(base, interval)
	case models.FrequencyYearly:
		return addMonthsClamped(base, 12*interval)
	default:
		return base.AddDate(0, 0, interval)
	}
}

// addMonthsClamped adds n calendar months, clamping the day to the last day of
// the target month instead of overflowing into the next one.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	ty, tm, _ := first.Date()
	if last := daysIn(ty, tm, t.Location()); d > last {
		d = last
	}
	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func normalizeDays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
