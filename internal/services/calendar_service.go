package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/teamflow/internal/access"
	"github.com/yukikurage/teamflow/internal/calendar"
	"github.com/yukikurage/teamflow/internal/repository"
	gcal "google.golang.org/api/calendar/v3"
)

var ErrInvalidCalendarMode = errors.New("calendar mode must be all or me")

// CalendarMode is the view a client asked for. A viewer only ever sees tasks
// they own or are assigned to, so both modes select the same tasks; "me" is
// accepted because clients send it from their personal calendar view.
type CalendarMode string

const (
	CalendarAll CalendarMode = "all"
	CalendarMe  CalendarMode = "me"
)

// CalendarService lays out a viewer's tasks on a time grid
type CalendarService struct {
	taskRepo repository.TaskRepository
	orgRepo  repository.OrganizationRepository
	location *time.Location
}

// NewCalendarService creates a new CalendarService. Days are cut in loc.
func NewCalendarService(taskRepo repository.TaskRepository, orgRepo repository.OrganizationRepository, loc *time.Location) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarService{
		taskRepo: taskRepo,
		orgRepo:  orgRepo,
		location: loc,
	}
}

// CalendarInput identifies the viewer and the first day to show
type CalendarInput struct {
	UserID         uint64
	OrganizationID uint64
	Start          time.Time
	Mode           CalendarMode
	// MemberID narrows the calendar to one member's tasks
	MemberID *uint64
}

// CalendarDay holds the placements of one day
type CalendarDay struct {
	Date       time.Time
	Placements []calendar.Placement
}

// Week lays out the seven days starting at input.Start
func (s *CalendarService) Week(input CalendarInput) ([]CalendarDay, error) {
	return s.days(input, 7)
}

// DayEvents renders one day as Google Calendar events
func (s *CalendarService) DayEvents(input CalendarInput) ([]*gcal.Event, error) {
	days, err := s.days(input, 1)
	if err != nil {
		return nil, err
	}

	events, err := calendar.ToEvents(days[0].Placements)
	if err != nil {
		return nil, fmt.Errorf("failed to export events: %w", err)
	}
	return events, nil
}

func (s *CalendarService) days(input CalendarInput, count int) ([]CalendarDay, error) {
	switch input.Mode {
	case "", CalendarAll, CalendarMe:
	default:
		return nil, ErrInvalidCalendarMode
	}

	if _, err := findMembership(s.orgRepo, input.OrganizationID, input.UserID); err != nil {
		return nil, err
	}

	snapshot, err := s.taskRepo.ListForViewer(input.OrganizationID, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	visible := access.Select(snapshot, &access.Viewer{
		ID:             input.UserID,
		OrganizationID: input.OrganizationID,
	}, access.Options{
		MemberID: input.MemberID,
		Location: s.location,
	})

	from := calendar.StartOfDay(input.Start.In(s.location))
	window := calendar.InRange(visible, from, from.AddDate(0, 0, count))

	days := make([]CalendarDay, count)
	for i := range days {
		day := from.AddDate(0, 0, i)
		days[i] = CalendarDay{
			Date:       day,
			Placements: calendar.PositionedTasks(window, day),
		}
	}
	return days, nil
}
