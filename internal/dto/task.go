package dto

import (
	"time"

	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID               uint64                   `json:"id"`
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Status           models.TaskStatus        `json:"status"`
	Priority         models.TaskPriority      `json:"priority"`
	Visibility       models.TaskVisibility    `json:"visibility"`
	DueDate          *time.Time               `json:"due_date"`
	EstimatedMinutes *int                     `json:"estimated_minutes"`
	Recurrence       *models.RecurrenceConfig `json:"recurrence,omitempty"`
	SmartRank        *float64                 `json:"smart_rank"`
	ProjectID        *uint64                  `json:"project_id"`
	Tags             []string                 `json:"tags"`
	Source           models.TaskSource        `json:"source"`
	CompletedAt      *time.Time               `json:"completed_at"`
	OriginalTaskID   *uint64                  `json:"original_task_id"`
	OwnerID          uint64                   `json:"owner_id"`
	OrganizationID   uint64                   `json:"organization_id"`
	AssigneeIDs      []uint64                 `json:"assignee_ids"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
	Assignees        []UserDTO                `json:"assignees,omitempty"`
}

// TaskListResponse represents a paginated, ordered list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToggleTaskResponse reports the toggled task and the successor a recurrence produced
type ToggleTaskResponse struct {
	Task TaskDTO  `json:"task"`
	Next *TaskDTO `json:"next,omitempty"`
	// GraceMillis is how long clients should keep a completed task sorted as active.
	GraceMillis int64 `json:"grace_ms"`
}

// ClearCompletedResponse reports how many tasks were removed
type ClearCompletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// RankTasksResponse reports how many tasks received a smart rank
type RankTasksResponse struct {
	Ranked int `json:"ranked"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToOrganizationDTO converts an Organization model to OrganizationDTO
func ToOrganizationDTO(org models.Organization, includeInviteCode bool) OrganizationDTO {
	dto := OrganizationDTO{
		ID:   org.ID,
		Name: org.Name,
	}
	if includeInviteCode {
		dto.InviteCode = org.InviteCode
	}
	return dto
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:               task.ID,
		Title:            task.Title,
		Description:      task.Description,
		Status:           task.Status,
		Priority:         task.Priority,
		Visibility:       task.Visibility,
		DueDate:          task.DueDate,
		EstimatedMinutes: task.EstimatedMinutes,
		Recurrence:       task.Recurrence,
		SmartRank:        task.SmartRank,
		ProjectID:        task.ProjectID,
		Tags:             task.Tags,
		Source:           task.Source,
		CompletedAt:      task.CompletedAt,
		OriginalTaskID:   task.OriginalTaskID,
		OwnerID:          task.OwnerID,
		OrganizationID:   task.OrganizationID,
		AssigneeIDs:      task.AssigneeIDs,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	if dto.AssigneeIDs == nil {
		dto.AssigneeIDs = []uint64{}
	}

	// Include assignee users if preloaded
	for _, assignment := range task.Assignments {
		if assignment.User.ID != 0 {
			dto.Assignees = append(dto.Assignees, ToUserDTO(assignment.User))
		}
	}

	return dto
}

// ToTaskDTOs converts tasks keeping their order
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}

// ToTaskListResponse converts an ordered page of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int) TaskListResponse {
	return TaskListResponse{
		Tasks:      ToTaskDTOs(tasks),
		Pagination: params.Response(total),
	}
}
