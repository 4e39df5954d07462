package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "backlog"
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusBacklog, TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityMedium   TaskPriority = "medium"
	PriorityLow      TaskPriority = "low"
)

// Score orders priorities, higher is more urgent. Unknown priorities score 0.
func (p TaskPriority) Score() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	return p.Score() > 0
}

type TaskVisibility string

const (
	VisibilityPrivate TaskVisibility = "private"
	VisibilityTeam    TaskVisibility = "team"
)

type TaskSource string

const (
	SourceManual TaskSource = "manual"
	SourceEmail  TaskSource = "email"
	SourceVoice  TaskSource = "voice"
	SourceSystem TaskSource = "system"
)

type Task struct {
	ID               uint64            `gorm:"primarykey" json:"id"`
	Title            string            `gorm:"not null" json:"title"`
	Description      string            `gorm:"type:text" json:"description"`
	Status           TaskStatus        `gorm:"type:varchar(20);not null;default:'backlog'" json:"status"`
	Priority         TaskPriority      `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Visibility       TaskVisibility    `gorm:"type:varchar(20);not null;default:'private'" json:"visibility"`
	DueDate          *time.Time        `json:"due_date"`
	EstimatedMinutes *int              `json:"estimated_minutes"`
	Recurrence       *RecurrenceConfig `gorm:"serializer:json" json:"recurrence,omitempty"`
	SmartRank        *float64          `json:"smart_rank"`
	ProjectID        *uint64           `json:"project_id"`
	Tags             []string          `gorm:"serializer:json" json:"tags"`
	Source           TaskSource        `gorm:"type:varchar(20)" json:"source,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at"`
	AcceptedAt       *time.Time        `json:"accepted_at"`
	OriginalTaskID   *uint64           `json:"original_task_id"`
	OwnerID          uint64            `gorm:"not null" json:"owner_id"`
	OrganizationID   uint64            `gorm:"not null" json:"organization_id"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`

	// AssigneeIDs mirrors Assignments; it is filled after every load that preloads them.
	AssigneeIDs []uint64 `gorm:"-" json:"assignee_ids"`

	// Relations
	Owner        User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Organization Organization     `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Assignments  []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
}

// AfterFind copies preloaded assignments into AssigneeIDs.
func (t *Task) AfterFind(tx *gorm.DB) error {
	if t.Assignments == nil {
		return nil
	}
	ids := make([]uint64, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	t.AssigneeIDs = ids
	return nil
}

// IsAssignee reports whether userID is in the assignee set.
func (t *Task) IsAssignee(userID uint64) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsOwnerOrAssignee reports whether userID owns the task or is assigned to it.
func (t *Task) IsOwnerOrAssignee(userID uint64) bool {
	return t.OwnerID == userID || t.IsAssignee(userID)
}

// SetAssignees replaces the assignee set and re-derives visibility.
func (t *Task) SetAssignees(ids []uint64) {
	t.AssigneeIDs = UniqueIDs(ids)
	t.Visibility = DeriveVisibility(t.OwnerID, t.AssigneeIDs)
}

// DeriveVisibility returns team when anyone other than the owner is assigned.
func DeriveVisibility(ownerID uint64, assigneeIDs []uint64) TaskVisibility {
	for _, id := range assigneeIDs {
		if id != ownerID {
			return VisibilityTeam
		}
	}
	return VisibilityPrivate
}

// UniqueIDs removes duplicates while keeping first-seen order.
func UniqueIDs(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
