package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamflow/internal/access"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/dto"
	apierrors "github.com/yukikurage/teamflow/internal/errors"
	"github.com/yukikurage/teamflow/internal/middleware"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/services"
	"github.com/yukikurage/teamflow/internal/utils"
)

// TaskHandler serves task endpoints
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the caller's tasks in an organization, filtered and ordered.
//
// Query: organization_id (defaults to the active organization), time=all|today|upcoming,
// scope=all|private|shared, member_id, grace=comma separated task ids, page, limit.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	orgID, ok := parseOrganizationQuery(c)
	if !ok {
		return
	}

	timeScope := access.TimeScope(c.DefaultQuery("time", string(access.TimeAll)))
	switch timeScope {
	case access.TimeAll, access.TimeToday, access.TimeUpcoming:
	default:
		apierrors.BadRequest(c, "time must be all, today or upcoming")
		return
	}

	visibility := access.VisibilityScope(c.DefaultQuery("scope", string(access.ScopeAll)))
	switch visibility {
	case access.ScopeAll, access.ScopePrivate, access.ScopeShared:
	default:
		apierrors.BadRequest(c, "scope must be all, private or shared")
		return
	}

	memberID, ok := parseOptionalIDQuery(c, "member_id")
	if !ok {
		return
	}

	grace, err := parseIDList(c.Query("grace"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid grace list")
		return
	}

	params := utils.GetPaginationParams(c)
	tasks, total, err := h.taskService.ListTasks(services.ListTasksInput{
		UserID:          userID,
		OrganizationID:  orgID,
		TimeScope:       timeScope,
		VisibilityScope: visibility,
		MemberID:        memberID,
		Grace:           grace,
		Page:            params.Page,
		PageSize:        params.Limit,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// GetTask returns the task loaded by RequireTaskAccess
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := taskFromContext(c)
	if !ok {
		return
	}

	found, err := h.taskService.GetTask(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*found))
}

// CreateTask creates a task owned by the caller
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title            string                   `json:"title" binding:"required"`
		Description      string                   `json:"description"`
		Status           models.TaskStatus        `json:"status"`
		Priority         models.TaskPriority      `json:"priority"`
		DueDate          *time.Time               `json:"due_date"`
		EstimatedMinutes *int                     `json:"estimated_minutes"`
		Recurrence       *models.RecurrenceConfig `json:"recurrence"`
		ProjectID        *uint64                  `json:"project_id"`
		Tags             []string                 `json:"tags"`
		Source           models.TaskSource        `json:"source"`
		AssigneeIDs      []uint64                 `json:"assignee_ids"`
		OrganizationID   uint64                   `json:"organization_id" binding:"required"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Status:           req.Status,
		Priority:         req.Priority,
		DueDate:          req.DueDate,
		EstimatedMinutes: req.EstimatedMinutes,
		Recurrence:       req.Recurrence,
		ProjectID:        req.ProjectID,
		Tags:             req.Tags,
		Source:           req.Source,
		AssigneeIDs:      req.AssigneeIDs,
		OrganizationID:   req.OrganizationID,
		OwnerID:          userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies the fields present in the body. due_date and recurrence
// may be sent as null to clear them.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, ok := taskFromContext(c)
	if !ok {
		return
	}

	// Raw fields tell an explicit null apart from an absent key
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := decodeTaskPatch(raw)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	result, err := h.taskService.UpdateTask(task.ID, userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, toToggleResponse(result))
}

// DeleteTask deletes a task owned by the caller
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, ok := taskFromContext(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(task.ID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted",
	})
}

// ToggleTask completes or reopens a task
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, ok := taskFromContext(c)
	if !ok {
		return
	}

	result, err := h.taskService.ToggleTask(task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, toToggleResponse(result))
}

// AssignTask adds assignees to a task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, ok := taskFromContext(c)
	if !ok {
		return
	}

	req, ok := bindUserIDs(c)
	if !ok {
		return
	}

	updated, err := h.taskService.AssignUsers(services.AssignUsersInput{
		TaskID:  task.ID,
		ActorID: userID,
		UserIDs: req,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UnassignTask removes assignees from a task
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, ok := taskFromContext(c)
	if !ok {
		return
	}

	req, ok := bindUserIDs(c)
	if !ok {
		return
	}

	updated, err := h.taskService.UnassignUsers(task.ID, userID, req)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// ClearCompleted deletes the caller's done tasks in an organization
func (h *TaskHandler) ClearCompleted(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	orgID, ok := parseOrganizationQuery(c)
	if !ok {
		return
	}

	deleted, err := h.taskService.ClearCompleted(orgID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClearCompletedResponse{Deleted: deleted})
}

// RankTasks asks the AI service for a smart rank of the caller's open tasks
func (h *TaskHandler) RankTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	orgID, ok := parseOrganizationQuery(c)
	if !ok {
		return
	}

	ranked, err := h.taskService.RankTasks(c.Request.Context(), orgID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RankTasksResponse{Ranked: ranked})
}

// GenerateTasks suggests tasks from free text. Nothing is stored.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	if _, exists := middleware.GetUserID(c); !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type GenerateRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tasks, err := h.taskService.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{
		Text: req.Text,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
	})
}

func taskFromContext(c *gin.Context) (models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return models.Task{}, false
	}

	task, ok := value.(models.Task)
	if !ok {
		apierrors.InternalError(c, "Invalid task data")
		return models.Task{}, false
	}
	return task, true
}

func bindUserIDs(c *gin.Context) ([]uint64, bool) {
	type UserIDsRequest struct {
		UserIDs []uint64 `json:"user_ids" binding:"required"`
	}

	var req UserIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return nil, false
	}
	return req.UserIDs, true
}

func toToggleResponse(result *services.ToggleResult) dto.ToggleTaskResponse {
	response := dto.ToggleTaskResponse{
		Task:        dto.ToTaskDTO(*result.Task),
		GraceMillis: constants.GraceWindow.Milliseconds(),
	}
	if result.Next != nil {
		next := dto.ToTaskDTO(*result.Next)
		response.Next = &next
	}
	return response
}

// parseOrganizationQuery reads organization_id, defaulting to the session's
// active organization
func parseOrganizationQuery(c *gin.Context) (uint64, bool) {
	raw := c.Query("organization_id")
	if raw == "" {
		if orgID, ok := middleware.GetActiveOrganizationID(c); ok {
			return orgID, true
		}
		apierrors.BadRequest(c, "organization_id is required")
		return 0, false
	}
	orgID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid organization_id")
		return 0, false
	}
	return orgID, true
}

func parseOptionalIDQuery(c *gin.Context, key string) (*uint64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+key)
		return nil, false
	}
	return &id, true
}

func parseIDList(raw string) ([]uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func decodeTaskPatch(raw map[string]json.RawMessage) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	fields := []struct {
		key    string
		target any
	}{
		{"title", &input.Title},
		{"description", &input.Description},
		{"status", &input.Status},
		{"priority", &input.Priority},
		{"estimated_minutes", &input.EstimatedMinutes},
		{"project_id", &input.ProjectID},
		{"tags", &input.Tags},
	}
	for _, f := range fields {
		value, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, f.target); err != nil {
			return input, errors.New("invalid " + f.key)
		}
	}

	if value, ok := raw["due_date"]; ok {
		if isJSONNull(value) {
			input.ClearDueDate = true
		} else if err := json.Unmarshal(value, &input.DueDate); err != nil {
			return input, errors.New("invalid due_date")
		}
	}
	if value, ok := raw["recurrence"]; ok {
		if isJSONNull(value) {
			input.ClearRecurrence = true
		} else if err := json.Unmarshal(value, &input.Recurrence); err != nil {
			return input, errors.New("invalid recurrence")
		}
	}

	return input, nil
}

func isJSONNull(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "null"
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotOrganizationMember):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNotTaskOwner),
		errors.Is(err, services.ErrTaskPermissionDenied):
		apierrors.InsufficientPermissions(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNoUserIDsProvided),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidTaskAssignee),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidRecurrence),
		errors.Is(err, services.ErrInvalidEstimate),
		errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
