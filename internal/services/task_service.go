package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yukikurage/teamflow/internal/access"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/recurrence"
	"github.com/yukikurage/teamflow/internal/repository"
	"github.com/yukikurage/teamflow/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrNotOrganizationMember  = errors.New("user is not a member of the organization")
	ErrTaskNotFound           = errors.New("task not found")
	ErrNotTaskOwner           = errors.New("only the task owner can perform this action")
	ErrTaskPermissionDenied   = errors.New("user does not have permission to modify this task")
	ErrNoUserIDsProvided      = errors.New("at least one user ID is required")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleEmpty             = errors.New("title cannot be empty")
	ErrInvalidTaskAssignee    = errors.New("one or more users do not exist or are not members of the organization")
	ErrInvalidStatus          = errors.New("invalid task status")
	ErrInvalidPriority        = errors.New("invalid task priority")
	ErrInvalidRecurrence      = errors.New("invalid recurrence rule")
	ErrInvalidEstimate        = errors.New("estimated minutes must be positive")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	orgRepo   repository.OrganizationRepository
	aiService *AIService
	location  *time.Location
	now       func() time.Time
}

// NewTaskService creates a new TaskService. "Today" is evaluated in loc.
func NewTaskService(taskRepo repository.TaskRepository, orgRepo repository.OrganizationRepository, aiService *AIService, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{
		taskRepo:  taskRepo,
		orgRepo:   orgRepo,
		aiService: aiService,
		location:  loc,
		now:       time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID          uint64
	OrganizationID  uint64
	TimeScope       access.TimeScope
	VisibilityScope access.VisibilityScope
	MemberID        *uint64
	Grace           []uint64
	Page            int
	PageSize        int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title            string
	Description      string
	Status           models.TaskStatus
	Priority         models.TaskPriority
	DueDate          *time.Time
	EstimatedMinutes *int
	Recurrence       *models.RecurrenceConfig
	ProjectID        *uint64
	Tags             []string
	Source           models.TaskSource
	AssigneeIDs      []uint64
	OrganizationID   uint64
	OwnerID          uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	DueDate          *time.Time
	ClearDueDate     bool
	EstimatedMinutes *int
	Recurrence       *models.RecurrenceConfig
	ClearRecurrence  bool
	ProjectID        *uint64
	Tags             []string
}

// AssignUsersInput represents input for assigning users to a task
type AssignUsersInput struct {
	TaskID  uint64
	ActorID uint64
	UserIDs []uint64
}

// ToggleResult is the outcome of a completion toggle
type ToggleResult struct {
	Task *models.Task
	// Next is the successor created when completing a recurring task
	Next *models.Task
}

// ListTasks returns the page of tasks the user may see, filtered and ordered
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int, error) {
	if err := s.ensureOrganizationMember(input.OrganizationID, input.UserID); err != nil {
		return nil, 0, err
	}

	snapshot, err := s.taskRepo.ListForViewer(input.OrganizationID, input.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	selected := access.Select(snapshot, &access.Viewer{
		ID:             input.UserID,
		OrganizationID: input.OrganizationID,
	}, access.Options{
		TimeScope:       input.TimeScope,
		VisibilityScope: input.VisibilityScope,
		MemberID:        input.MemberID,
		Grace:           toSet(input.Grace),
		Now:             s.now(),
		Location:        s.location,
	})

	params := utils.NewPaginationParams(input.Page, input.PageSize)
	return utils.Paginate(selected, params), len(selected), nil
}

// GetTask returns a task with its assignments
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	return s.findTask(taskID)
}

// CreateTask creates a new task owned by input.OwnerID
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	if err := s.ensureOrganizationMember(input.OrganizationID, input.OwnerID); err != nil {
		return nil, err
	}

	if input.Status == "" {
		input.Status = models.TaskStatusBacklog
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if input.Source == "" {
		input.Source = models.SourceManual
	}
	if err := validateTaskFields(input.Status, input.Priority, input.EstimatedMinutes, input.Recurrence); err != nil {
		return nil, err
	}

	assignees := models.UniqueIDs(input.AssigneeIDs)
	if err := s.ensureAssignable(assignees, input.OrganizationID); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:            title,
		Description:      input.Description,
		Status:           input.Status,
		Priority:         input.Priority,
		DueDate:          input.DueDate,
		EstimatedMinutes: input.EstimatedMinutes,
		Recurrence:       input.Recurrence,
		ProjectID:        input.ProjectID,
		Tags:             input.Tags,
		Source:           input.Source,
		OrganizationID:   input.OrganizationID,
		OwnerID:          input.OwnerID,
	}
	task.SetAssignees(assignees)
	if task.Status == models.TaskStatusDone {
		now := s.now()
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.findTask(task.ID)
}

// UpdateTask updates an existing task. A status change to done follows the
// same completion rules as ToggleTask.
func (s *TaskService) UpdateTask(taskID, actorID uint64, input UpdateTaskInput) (*ToggleResult, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOwnerOrAssignee(actorID) {
		return nil, ErrTaskPermissionDenied
	}

	var columns []string
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = title
		columns = append(columns, "title")
	}
	if input.Description != nil {
		task.Description = *input.Description
		columns = append(columns, "description")
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
		columns = append(columns, "priority")
	}
	if input.ClearDueDate {
		task.DueDate = nil
		columns = append(columns, "due_date")
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
		columns = append(columns, "due_date")
	}
	if input.EstimatedMinutes != nil {
		task.EstimatedMinutes = input.EstimatedMinutes
		columns = append(columns, "estimated_minutes")
	}
	if input.ClearRecurrence {
		task.Recurrence = nil
		columns = append(columns, "recurrence")
	} else if input.Recurrence != nil {
		task.Recurrence = input.Recurrence
		columns = append(columns, "recurrence")
	}
	if input.ProjectID != nil {
		task.ProjectID = input.ProjectID
		columns = append(columns, "project_id")
	}
	if input.Tags != nil {
		task.Tags = input.Tags
		columns = append(columns, "tags")
	}

	completing := false
	if input.Status != nil {
		switch {
		case *input.Status == models.TaskStatusDone:
			// Completion only ever happens through the conditional update
			completing = task.Status != models.TaskStatusDone
		default:
			task.Status = *input.Status
			task.CompletedAt = nil
			columns = append(columns, "status", "completed_at")
		}
	}

	if err := validateTaskFields(task.Status, task.Priority, task.EstimatedMinutes, task.Recurrence); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(task, columns...); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if completing {
		return s.complete(task, actorID)
	}

	task, err = s.findTask(task.ID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Task: task}, nil
}

// DeleteTask permanently deletes a task if the actor owns it
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.findTask(taskID)
	if err != nil {
		return err
	}

	if task.OwnerID != actorID {
		return ErrNotTaskOwner
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// AssignUsers adds members of the task's organization to its assignees
func (s *TaskService) AssignUsers(input AssignUsersInput) (*models.Task, error) {
	if len(input.UserIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	task, err := s.findTask(input.TaskID)
	if err != nil {
		return nil, err
	}

	if task.OwnerID != input.ActorID {
		return nil, ErrNotTaskOwner
	}

	userIDs := models.UniqueIDs(input.UserIDs)
	if err := s.ensureAssignable(userIDs, task.OrganizationID); err != nil {
		return nil, err
	}

	task.SetAssignees(append(task.AssigneeIDs, userIDs...))
	if err := s.taskRepo.ReplaceAssignees(task); err != nil {
		return nil, fmt.Errorf("failed to assign users: %w", err)
	}

	return s.findTask(task.ID)
}

// UnassignUsers removes assignees. The owner may remove anyone, an assignee
// may only remove themselves.
func (s *TaskService) UnassignUsers(taskID, actorID uint64, userIDs []uint64) (*models.Task, error) {
	if len(userIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	removed := toSet(userIDs)
	if task.OwnerID != actorID {
		if _, self := removed[actorID]; !self || len(removed) != 1 {
			return nil, ErrNotTaskOwner
		}
	}

	kept := make([]uint64, 0, len(task.AssigneeIDs))
	for _, id := range task.AssigneeIDs {
		if _, drop := removed[id]; !drop {
			kept = append(kept, id)
		}
	}

	task.SetAssignees(kept)
	if err := s.taskRepo.ReplaceAssignees(task); err != nil {
		return nil, fmt.Errorf("failed to unassign users: %w", err)
	}

	return s.findTask(task.ID)
}

// ToggleTask flips a task between open and done.
//
// A done task reopens as todo. Completing a task the actor does not own moves
// it to review instead. When the owner completes a recurring task, exactly one
// successor is created even if several toggles race.
func (s *TaskService) ToggleTask(taskID, actorID uint64) (*ToggleResult, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !task.IsOwnerOrAssignee(actorID) {
		return nil, ErrTaskPermissionDenied
	}

	if task.Status == models.TaskStatusDone {
		if _, err := s.taskRepo.ReopenIfDone(task.ID); err != nil {
			return nil, fmt.Errorf("failed to toggle status: %w", err)
		}
		reopened, err := s.findTask(task.ID)
		if err != nil {
			return nil, err
		}
		return &ToggleResult{Task: reopened}, nil
	}

	return s.complete(task, actorID)
}

func (s *TaskService) complete(task *models.Task, actorID uint64) (*ToggleResult, error) {
	if task.OwnerID != actorID {
		if _, err := s.taskRepo.SubmitForReviewIfOpen(task.ID); err != nil {
			return nil, fmt.Errorf("failed to submit task for review: %w", err)
		}
		submitted, err := s.findTask(task.ID)
		if err != nil {
			return nil, err
		}
		return &ToggleResult{Task: submitted}, nil
	}

	now := s.now()
	changed, err := s.taskRepo.CompleteIfOpen(task.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	completed, err := s.findTask(task.ID)
	if err != nil {
		return nil, err
	}
	result := &ToggleResult{Task: completed}
	if !changed {
		// Someone else completed it first and owns the recurrence
		return result, nil
	}

	if !recurrence.ShouldRecur(completed, now) {
		return result, nil
	}

	next := successor(completed, now)
	if err := s.taskRepo.Create(next); err != nil {
		return nil, fmt.Errorf("failed to create next occurrence: %w", err)
	}
	result.Next, err = s.findTask(next.ID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// successor builds the next occurrence of a completed recurring task
func successor(done *models.Task, completedAt time.Time) *models.Task {
	due := recurrence.NextDueDate(*done.Recurrence, done.DueDate, completedAt)

	origin := done.ID
	if done.OriginalTaskID != nil {
		origin = *done.OriginalTaskID
	}

	next := &models.Task{
		Title:            done.Title,
		Description:      done.Description,
		Status:           models.TaskStatusTodo,
		Priority:         done.Priority,
		DueDate:          &due,
		EstimatedMinutes: done.EstimatedMinutes,
		Recurrence:       done.Recurrence,
		ProjectID:        done.ProjectID,
		Tags:             done.Tags,
		Source:           models.SourceSystem,
		OriginalTaskID:   &origin,
		OwnerID:          done.OwnerID,
		OrganizationID:   done.OrganizationID,
	}
	next.SetAssignees(done.AssigneeIDs)
	return next
}

// ClearCompleted deletes every done task of the organization the user owns or is assigned to
func (s *TaskService) ClearCompleted(organizationID, userID uint64) (int64, error) {
	if err := s.ensureOrganizationMember(organizationID, userID); err != nil {
		return 0, err
	}

	deleted, err := s.taskRepo.DeleteCompletedForUser(organizationID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear completed tasks: %w", err)
	}
	return deleted, nil
}

// RankTasks asks the AI service to rank the user's open tasks and stores the result
func (s *TaskService) RankTasks(ctx context.Context, organizationID, userID uint64) (int, error) {
	if s.aiService == nil {
		return 0, ErrAIServiceNotConfigured
	}

	tasks, _, err := s.ListTasks(ListTasksInput{
		UserID:         userID,
		OrganizationID: organizationID,
		PageSize:       constants.MaxPageSize,
	})
	if err != nil {
		return 0, err
	}

	open := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != models.TaskStatusDone {
			open = append(open, t)
		}
		if len(open) == constants.MaxAIRankedTasks {
			break
		}
	}
	if len(open) == 0 {
		return 0, nil
	}

	ranked, err := s.aiService.RankTasks(ctx, open, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to rank tasks: %w", err)
	}

	// Ranks for tasks outside the request are dropped
	requested := make(map[uint64]struct{}, len(open))
	for _, t := range open {
		requested[t.ID] = struct{}{}
	}
	ranks := make(map[uint64]float64, len(ranked))
	for _, r := range ranked {
		if _, ok := requested[r.ID]; ok {
			ranks[r.ID] = r.Rank
		}
	}

	if err := s.taskRepo.UpdateRanks(ranks); err != nil {
		return 0, fmt.Errorf("failed to store ranks: %w", err)
	}
	return len(ranks), nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text string
}

// GenerateTasks uses AI to suggest tasks from text. Nothing is persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	now := s.now()
	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := now.Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if !aiTask.Priority.Valid() {
			aiTask.Priority = models.PriorityMedium
		}
		if aiTask.EstimatedMinutes != nil && *aiTask.EstimatedMinutes <= 0 {
			aiTask.EstimatedMinutes = nil
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func (s *TaskService) findTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) ensureOrganizationMember(orgID, userID uint64) error {
	_, err := findMembership(s.orgRepo, orgID, userID)
	return err
}

// findMembership loads the user's membership, ErrNotOrganizationMember when absent
func findMembership(orgRepo repository.OrganizationRepository, orgID, userID uint64) (*models.OrganizationMember, error) {
	member, err := orgRepo.FindMember(orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotOrganizationMember
		}
		return nil, fmt.Errorf("failed to verify organization membership: %w", err)
	}
	return member, nil
}

// ensureAssignable verifies every user is a member of the organization
func (s *TaskService) ensureAssignable(userIDs []uint64, orgID uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	count, err := s.taskRepo.CountMembersByIDs(userIDs, orgID)
	if err != nil {
		return fmt.Errorf("failed to verify users: %w", err)
	}
	if int(count) != len(userIDs) {
		return ErrInvalidTaskAssignee
	}
	return nil
}

func validateTaskFields(status models.TaskStatus, priority models.TaskPriority, estimate *int, rule *models.RecurrenceConfig) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	if estimate != nil && *estimate <= 0 {
		return ErrInvalidEstimate
	}
	if rule != nil {
		switch rule.Frequency {
		case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyYearly:
		default:
			return ErrInvalidRecurrence
		}
		switch rule.Type {
		case "", models.RecurOnSchedule, models.RecurOnCompletion:
		default:
			return ErrInvalidRecurrence
		}
		if rule.Interval < 0 {
			return ErrInvalidRecurrence
		}
	}
	return nil
}

func toSet(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// sortedIDs returns the keys of set in ascending order
func sortedIDs(set map[uint64]struct{}) []uint64 {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
