package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/teamflow/internal/models"
	gcal "google.golang.org/api/calendar/v3"
)

// Private extended property keys written on exported events.
const (
	PropTaskID       = "teamflow_task_id"
	PropColumn       = "teamflow_column"
	PropTotalColumns = "teamflow_total_columns"
)

// Google Calendar event color ids per priority.
var priorityColors = map[models.TaskPriority]string{
	models.PriorityCritical: "11", // tomato
	models.PriorityHigh:     "6",  // tangerine
	models.PriorityMedium:   "9",  // blueberry
	models.PriorityLow:      "8",  // graphite
}

// ToEvent converts a placement into a Google Calendar event. The layout is
// kept in private extended properties so a client can restore columns.
func ToEvent(p Placement) (*gcal.Event, error) {
	if p.Task.DueDate == nil {
		return nil, fmt.Errorf("task %d has no due date", p.Task.ID)
	}
	start, end := Span(&p.Task)

	summary := p.Task.Title
	switch p.Task.Status {
	case models.TaskStatusDone:
		summary = "✓ " + summary
	case models.TaskStatusReview:
		summary = "? " + summary
	}

	var desc strings.Builder
	if len(p.Task.Tags) > 0 {
		for _, tag := range p.Task.Tags {
			desc.WriteString("#" + tag + " ")
		}
		desc.WriteString("\n\n")
	}
	desc.WriteString(p.Task.Description)

	return &gcal.Event{
		Summary:     summary,
		Description: strings.TrimSpace(desc.String()),
		ColorId:     priorityColors[p.Task.Priority],
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				PropTaskID:       strconv.FormatUint(p.Task.ID, 10),
				PropColumn:       strconv.Itoa(p.ColumnIndex),
				PropTotalColumns: strconv.Itoa(p.TotalColumns),
			},
		},
	}, nil
}

// ToEvents converts placements in order.
func ToEvents(placements []Placement) ([]*gcal.Event, error) {
	events := make([]*gcal.Event, 0, len(placements))
	for _, p := range placements {
		ev, err := ToEvent(p)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
