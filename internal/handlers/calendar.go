package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamflow/internal/dto"
	apierrors "github.com/yukikurage/teamflow/internal/errors"
	"github.com/yukikurage/teamflow/internal/middleware"
	"github.com/yukikurage/teamflow/internal/services"
)

const dateLayout = "2006-01-02"

// CalendarHandler serves the calendar views
type CalendarHandler struct {
	calendarService *services.CalendarService
	location        *time.Location
}

// NewCalendarHandler creates a new CalendarHandler. Dates in queries are read in loc.
func NewCalendarHandler(calendarService *services.CalendarService, loc *time.Location) *CalendarHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarHandler{
		calendarService: calendarService,
		location:        loc,
	}
}

// Week lays out seven days starting at start (YYYY-MM-DD, default today).
//
// Query: organization_id (defaults to the active organization), start, mode=all|me, member_id.
func (h *CalendarHandler) Week(c *gin.Context) {
	input, ok := h.calendarInput(c, "start")
	if !ok {
		return
	}

	days, err := h.calendarService.Week(input)
	if err != nil {
		respondCalendarError(c, err)
		return
	}

	response := dto.CalendarWeekResponse{
		Start: input.Start.Format(dateLayout),
		Days:  make([]dto.CalendarDayDTO, len(days)),
	}
	for i, day := range days {
		response.Days[i] = dto.CalendarDayDTO{
			Date:       day.Date.Format(dateLayout),
			Placements: dto.ToPlacementDTOs(day.Placements),
		}
	}

	c.JSON(http.StatusOK, response)
}

// ExportDay renders one day (date=YYYY-MM-DD) as Google Calendar events
func (h *CalendarHandler) ExportDay(c *gin.Context) {
	input, ok := h.calendarInput(c, "date")
	if !ok {
		return
	}

	events, err := h.calendarService.DayEvents(input)
	if err != nil {
		respondCalendarError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":   input.Start.Format(dateLayout),
		"events": events,
	})
}

func (h *CalendarHandler) calendarInput(c *gin.Context, dateKey string) (services.CalendarInput, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return services.CalendarInput{}, false
	}

	orgID, ok := parseOrganizationQuery(c)
	if !ok {
		return services.CalendarInput{}, false
	}

	memberID, ok := parseOptionalIDQuery(c, "member_id")
	if !ok {
		return services.CalendarInput{}, false
	}

	start := time.Now().In(h.location)
	if raw := c.Query(dateKey); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, h.location)
		if err != nil {
			apierrors.BadRequest(c, "Invalid "+dateKey+", expected YYYY-MM-DD")
			return services.CalendarInput{}, false
		}
		start = parsed
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, h.location)

	return services.CalendarInput{
		UserID:         userID,
		OrganizationID: orgID,
		Start:          start,
		Mode:           services.CalendarMode(c.DefaultQuery("mode", string(services.CalendarAll))),
		MemberID:       memberID,
	}, true
}

func respondCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCalendarMode):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotOrganizationMember):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
