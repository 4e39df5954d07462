package dto

import (
	"time"

	"github.com/yukikurage/teamflow/internal/calendar"
)

// PlacementDTO positions a task inside a day column
type PlacementDTO struct {
	Task         TaskDTO   `json:"task"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	ColumnIndex  int       `json:"column_index"`
	TotalColumns int       `json:"total_columns"`
}

// CalendarDayDTO is the laid-out content of one calendar day
type CalendarDayDTO struct {
	Date       string         `json:"date"`
	Placements []PlacementDTO `json:"placements"`
}

// CalendarWeekResponse holds seven consecutive days
type CalendarWeekResponse struct {
	Start string           `json:"start"`
	Days  []CalendarDayDTO `json:"days"`
}

// ToPlacementDTOs converts placements keeping their order
func ToPlacementDTOs(placements []calendar.Placement) []PlacementDTO {
	items := make([]PlacementDTO, len(placements))
	for i, p := range placements {
		start, end := calendar.Span(&p.Task)
		items[i] = PlacementDTO{
			Task:         ToTaskDTO(p.Task),
			Start:        start,
			End:          end,
			ColumnIndex:  p.ColumnIndex,
			TotalColumns: p.TotalColumns,
		}
	}
	return items
}
