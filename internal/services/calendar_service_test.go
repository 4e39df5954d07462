package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/calendar"
	"github.com/yukikurage/teamflow/internal/models"
)

type placed struct {
	id     uint64
	column int
	total  int
}

func placedTasks(ps []calendar.Placement) []placed {
	out := make([]placed, len(ps))
	for i, p := range ps {
		out[i] = placed{p.Task.ID, p.ColumnIndex, p.TotalColumns}
	}
	return out
}

func TestCalendarWeek(t *testing.T) {
	env := setupServiceTestEnv(t)

	a := env.createTask(t, CreateTaskInput{Title: "design review", DueDate: at(10, 9, 0)})
	b := env.createTask(t, CreateTaskInput{Title: "1:1", DueDate: at(10, 9, 30), EstimatedMinutes: ptr(30), AssigneeIDs: []uint64{env.member.ID}})
	c := env.createTask(t, CreateTaskInput{Title: "demo", DueDate: at(12, 14, 0)})
	env.createTask(t, CreateTaskInput{Title: "next week", DueDate: at(16, 9, 0)})
	env.createTask(t, CreateTaskInput{Title: "undated"})
	env.createTask(t, CreateTaskInput{Title: "member only", OwnerID: env.member.ID, DueDate: at(10, 9, 0)})
	env.createTask(t, CreateTaskInput{Title: "other tenant", OrganizationID: env.otherOrgID, OwnerID: env.outsider.ID, DueDate: at(10, 9, 0)})

	monday := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	days, err := env.calendars.Week(CalendarInput{UserID: env.owner.ID, OrganizationID: env.orgID, Start: monday})
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.True(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC).Equal(days[0].Date))
	assert.Empty(t, days[0].Placements)
	assert.Equal(t, []placed{{a.ID, 0, 2}, {b.ID, 1, 2}}, placedTasks(days[1].Placements))
	assert.Equal(t, []placed{{c.ID, 0, 1}}, placedTasks(days[3].Placements))
	for _, i := range []int{2, 4, 5, 6} {
		assert.Empty(t, days[i].Placements, "day %d", i)
	}

	// Entitlement already limits the week to the viewer's own tasks
	mine, err := env.calendars.Week(CalendarInput{UserID: env.owner.ID, OrganizationID: env.orgID, Start: monday, Mode: CalendarMe})
	require.NoError(t, err)
	require.Len(t, mine, 7)
	for i := range days {
		assert.Equal(t, placedTasks(days[i].Placements), placedTasks(mine[i].Placements))
	}

	// Narrowed to the member, b no longer shares its slot
	memberDays, err := env.calendars.Week(CalendarInput{UserID: env.owner.ID, OrganizationID: env.orgID, Start: monday, MemberID: &env.member.ID})
	require.NoError(t, err)
	assert.Equal(t, []placed{{b.ID, 0, 1}}, placedTasks(memberDays[1].Placements))
	assert.Empty(t, memberDays[3].Placements)
}

func TestCalendarWeek_Errors(t *testing.T) {
	env := setupServiceTestEnv(t)

	_, err := env.calendars.Week(CalendarInput{UserID: env.owner.ID, OrganizationID: env.orgID, Start: fixedNow, Mode: "team"})
	assert.ErrorIs(t, err, ErrInvalidCalendarMode)

	_, err = env.calendars.Week(CalendarInput{UserID: env.outsider.ID, OrganizationID: env.orgID, Start: fixedNow})
	assert.ErrorIs(t, err, ErrNotOrganizationMember)
}

func TestCalendarWeek_DaysCutInLocation(t *testing.T) {
	env := setupServiceTestEnv(t)
	tokyo := time.FixedZone("JST", 9*60*60)
	env.calendars = NewCalendarService(env.taskRepo, env.orgRepo, tokyo)

	// 20:00 UTC on the 10th is already the 11th in Tokyo
	late := env.createTask(t, CreateTaskInput{Title: "late call", DueDate: at(10, 20, 0)})

	days, err := env.calendars.Week(CalendarInput{UserID: env.owner.ID, OrganizationID: env.orgID, Start: time.Date(2026, 3, 10, 0, 0, 0, 0, tokyo)})
	require.NoError(t, err)
	assert.Empty(t, days[0].Placements)
	assert.Equal(t, []placed{{late.ID, 0, 1}}, placedTasks(days[1].Placements))
}

func TestCalendarDayEvents(t *testing.T) {
	env := setupServiceTestEnv(t)

	first := env.createTask(t, CreateTaskInput{Title: "deploy", Priority: models.PriorityCritical, DueDate: at(10, 9, 0)})
	env.createTask(t, CreateTaskInput{Title: "retro", DueDate: at(10, 9, 30), Status: models.TaskStatusDone})
	env.createTask(t, CreateTaskInput{Title: "tomorrow", DueDate: at(11, 9, 0)})

	events, err := env.calendars.DayEvents(CalendarInput{UserID: env.owner.ID, OrganizationID: env.orgID, Start: fixedNow})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "deploy", events[0].Summary)
	assert.Equal(t, "11", events[0].ColorId)
	start, err := time.Parse(time.RFC3339, events[0].Start.DateTime)
	require.NoError(t, err)
	assert.True(t, first.DueDate.Equal(start))
	end, err := time.Parse(time.RFC3339, events[0].End.DateTime)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, end.Sub(start))

	assert.Equal(t, "✓ retro", events[1].Summary)
	assert.Equal(t, "1", events[1].ExtendedProperties.Private[calendar.PropColumn])
	assert.Equal(t, "2", events[1].ExtendedProperties.Private[calendar.PropTotalColumns])
}
