package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/models"
)

func TestToEvents(t *testing.T) {
	first := timed(7, 9, 0, 30)
	first.Title = "Standup"
	first.Priority = models.PriorityCritical
	first.Tags = []string{"team"}
	first.Description = "daily sync"
	second := timed(8, 9, 15)
	second.Title = "Review"
	second.Status = models.TaskStatusDone

	events, err := ToEvents(PositionedTasks([]models.Task{first, second}, day))
	require.NoError(t, err)
	require.Len(t, events, 2)

	ev := events[0]
	assert.Equal(t, "Standup", ev.Summary)
	assert.Equal(t, "#team \n\ndaily sync", ev.Description)
	assert.Equal(t, "11", ev.ColorId)
	assert.Equal(t, day.Add(9*time.Hour).Format(time.RFC3339), ev.Start.DateTime)
	assert.Equal(t, day.Add(9*time.Hour+30*time.Minute).Format(time.RFC3339), ev.End.DateTime)
	assert.Equal(t, "7", ev.ExtendedProperties.Private[PropTaskID])
	assert.Equal(t, "0", ev.ExtendedProperties.Private[PropColumn])
	assert.Equal(t, "2", ev.ExtendedProperties.Private[PropTotalColumns])

	assert.Equal(t, "✓ Review", events[1].Summary)
	assert.Equal(t, "1", events[1].ExtendedProperties.Private[PropColumn])
}

func TestToEvent_RequiresDueDate(t *testing.T) {
	_, err := ToEvent(Placement{Task: models.Task{ID: 1}})
	assert.Error(t, err)
}
