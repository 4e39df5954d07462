// Package access decides which tasks a viewer may see and in what order.
//
// Select is a pure function of its inputs: tenant isolation is checked first
// and unconditionally, then entitlement (owner or assignee), then the UI
// filters. The surviving tasks are sorted by a single deterministic comparator.
package access

import (
	"math"
	"sort"
	"time"

	"github.com/yukikurage/teamflow/internal/models"
)

type TimeScope string

const (
	TimeAll      TimeScope = "all"
	TimeToday    TimeScope = "today"
	TimeUpcoming TimeScope = "upcoming"
)

type VisibilityScope string

const (
	ScopeAll     VisibilityScope = "all"
	ScopePrivate VisibilityScope = "private"
	// ScopeShared keeps every task whose visibility is not private.
	ScopeShared VisibilityScope = "shared"
)

// Viewer is the identity a selection is computed for.
type Viewer struct {
	ID             uint64
	OrganizationID uint64
}

// Options narrows a selection. The zero value selects everything the viewer
// is entitled to, relative to the current wall clock.
type Options struct {
	TimeScope       TimeScope
	VisibilityScope VisibilityScope
	// MemberID restricts the result to tasks owned by or assigned to that member.
	MemberID *uint64
	// Grace holds ids of freshly completed tasks that still sort as active.
	Grace map[uint64]struct{}
	// Now and Location define "today". They default to time.Now and time.Local.
	Now      time.Time
	Location *time.Location
}

// unrankedRank sorts unranked tasks after every ranked one.
const unrankedRank = math.MaxFloat64

// criticalUnrankedRank lifts unranked critical tasks above every ranked one.
const criticalUnrankedRank = -1

var farFuture = time.Unix(1<<62, 0)

// Select returns the tasks viewer may see, filtered by opts and ordered.
// A nil viewer yields an empty result.
func Select(tasks map[uint64]models.Task, viewer *Viewer, opts Options) []models.Task {
	if viewer == nil {
		return []models.Task{}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	result := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if !Visible(&task, viewer) {
			continue
		}
		if !matchesVisibility(&task, opts.VisibilityScope) {
			continue
		}
		if opts.MemberID != nil && !task.IsOwnerOrAssignee(*opts.MemberID) {
			continue
		}
		if !matchesTime(&task, opts.TimeScope, now, loc) {
			continue
		}
		result = append(result, task)
	}

	Sort(result, opts.Grace)
	return result
}

// Visible reports whether viewer may observe task at all. Tenant isolation is
// checked before entitlement and cannot be overridden by assignment.
func Visible(task *models.Task, viewer *Viewer) bool {
	if viewer == nil || task.OrganizationID != viewer.OrganizationID {
		return false
	}
	return task.IsOwnerOrAssignee(viewer.ID)
}

func matchesVisibility(task *models.Task, scope VisibilityScope) bool {
	switch scope {
	case ScopePrivate:
		return task.Visibility == models.VisibilityPrivate
	case ScopeShared:
		return task.Visibility != models.VisibilityPrivate
	}
	return true
}

func matchesTime(task *models.Task, scope TimeScope, now time.Time, loc *time.Location) bool {
	switch scope {
	case TimeToday:
		if task.DueDate == nil {
			return false
		}
		return SameDay(*task.DueDate, now, loc)
	case TimeUpcoming:
		if task.DueDate == nil {
			return true
		}
		return task.DueDate.After(now) && !SameDay(*task.DueDate, now, loc)
	}
	return true
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Sort orders tasks in place: effectively active first, then rank ascending,
// priority descending, due date ascending and creation time descending.
func Sort(tasks []models.Task, grace map[uint64]struct{}) {
	sort.Slice(tasks, func(i, j int) bool {
		return Less(&tasks[i], &tasks[j], grace)
	})
}

// Less is the ordering comparator used by Select.
func Less(a, b *models.Task, grace map[uint64]struct{}) bool {
	aDone, bDone := effectivelyDone(a, grace), effectivelyDone(b, grace)
	if aDone != bDone {
		return !aDone
	}

	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}

	pa, pb := a.Priority.Score(), b.Priority.Score()
	if pa != pb {
		return pa > pb
	}

	da, db := dueOrFar(a), dueOrFar(b)
	if !da.Equal(db) {
		return da.Before(db)
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}

	// Map iteration order is random; ids keep full ties reproducible.
	return a.ID < b.ID
}

func effectivelyDone(t *models.Task, grace map[uint64]struct{}) bool {
	if t.Status != models.TaskStatusDone {
		return false
	}
	_, held := grace[t.ID]
	return !held
}

func rank(t *models.Task) float64 {
	if t.SmartRank != nil {
		return *t.SmartRank
	}
	if t.Priority == models.PriorityCritical {
		return criticalUnrankedRank
	}
	return unrankedRank
}

func dueOrFar(t *models.Task) time.Time {
	if t.DueDate == nil {
		return farFuture
	}
	return *t.DueDate
}
