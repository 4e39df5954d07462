// Package calendar lays out time-stamped tasks on a time grid.
package calendar

import (
	"sort"
	"time"

	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/models"
)

// Placement positions one task inside its cluster of overlapping tasks.
// The renderer divides the day's width by TotalColumns.
type Placement struct {
	Task         models.Task
	ColumnIndex  int
	TotalColumns int
}

// Span returns the interval a task occupies on the grid. Tasks without an
// estimate last an hour.
func Span(t *models.Task) (start, end time.Time) {
	if t.DueDate == nil {
		return time.Time{}, time.Time{}
	}
	minutes := constants.DefaultEstimatedMinutes
	if t.EstimatedMinutes != nil && *t.EstimatedMinutes > 0 {
		minutes = *t.EstimatedMinutes
	}
	start = *t.DueDate
	return start, start.Add(time.Duration(minutes) * time.Minute)
}

// PositionedTasks places the tasks due on day (in day's location).
//
// Tasks are scanned in start order and grouped into clusters of transitively
// overlapping tasks. Inside a cluster each task takes the first column whose
// last task has already ended, or opens a new column. Every task of a cluster
// receives the cluster's column count.
func PositionedTasks(tasks []models.Task, day time.Time) []Placement {
	dayTasks := OnDay(tasks, day)
	if len(dayTasks) == 0 {
		return []Placement{}
	}

	sort.SliceStable(dayTasks, func(i, j int) bool {
		a, b := dayTasks[i].DueDate, dayTasks[j].DueDate
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return dayTasks[i].ID < dayTasks[j].ID
	})

	result := make([]Placement, 0, len(dayTasks))
	var clusterEnd time.Time
	clusterStart := 0
	var columnEnds []time.Time

	closeCluster := func() {
		for i := clusterStart; i < len(result); i++ {
			result[i].TotalColumns = len(columnEnds)
		}
		clusterStart = len(result)
		columnEnds = columnEnds[:0]
	}

	for _, task := range dayTasks {
		start, end := Span(&task)

		if len(result) > 0 && !start.Before(clusterEnd) {
			closeCluster()
		}
		if len(result) == clusterStart || end.After(clusterEnd) {
			clusterEnd = end
		}

		col := -1
		for i, colEnd := range columnEnds {
			if !start.Before(colEnd) {
				col = i
				break
			}
		}
		if col == -1 {
			columnEnds = append(columnEnds, end)
			col = len(columnEnds) - 1
		} else {
			columnEnds[col] = end
		}

		result = append(result, Placement{Task: task, ColumnIndex: col})
	}
	closeCluster()

	return result
}

// OnDay returns the dated tasks whose due date falls on day's calendar date.
func OnDay(tasks []models.Task, day time.Time) []models.Task {
	loc := day.Location()
	y, m, d := day.Date()
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		ty, tm, td := t.DueDate.In(loc).Date()
		if ty == y && tm == m && td == d {
			out = append(out, t)
		}
	}
	return out
}

// InRange returns the dated tasks due within [from, to).
func InRange(tasks []models.Task, from, to time.Time) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		if !t.DueDate.Before(from) && t.DueDate.Before(to) {
			out = append(out, t)
		}
	}
	return out
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
