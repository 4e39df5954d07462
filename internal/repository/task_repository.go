package repository

import (
	"time"

	"github.com/yukikurage/teamflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task together with its assignments
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		return insertAssignments(tx, task.ID, task.AssigneeIDs)
	})
}

// FindByID finds a task by ID with its assignments loaded
func (r *GormTaskRepository) FindByID(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.Preload("Assignments").First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListForViewer loads the tasks of an organization that the user owns or is assigned to
func (r *GormTaskRepository) ListForViewer(organizationID, userID uint64) (map[uint64]models.Task, error) {
	assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
		Select("1").
		Where("task_assignments.task_id = tasks.id").
		Where("task_assignments.user_id = ?", userID)

	var tasks []models.Task
	if err := r.db.Model(&models.Task{}).
		Preload("Assignments").
		Where("tasks.organization_id = ?", organizationID).
		Where(r.db.Where("tasks.owner_id = ?", userID).Or("EXISTS (?)", assignmentSubQuery)).
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint64]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID, nil
}

// Update writes the named columns of task. Status and completion time are
// never written from a loaded copy; those go through the conditional updates.
func (r *GormTaskRepository) Update(task *models.Task, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.Model(task).Omit(clause.Associations).Select(columns).Updates(task).Error
}

// ReplaceAssignees replaces the assignee set and stores the derived visibility
func (r *GormTaskRepository) ReplaceAssignees(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := insertAssignments(tx, task.ID, task.AssigneeIDs); err != nil {
			return err
		}
		return tx.Model(&models.Task{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"visibility": task.Visibility,
				"updated_at": time.Now(),
			}).Error
	})
}

// Delete permanently removes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// CompleteIfOpen marks a task done unless it already is. The conditional
// update makes concurrent completions race on the row, and only the winner
// sees a changed row.
func (r *GormTaskRepository) CompleteIfOpen(id uint64, completedAt time.Time) (bool, error) {
	result := r.db.Model(&models.Task{}).
		Where("id = ? AND status <> ?", id, models.TaskStatusDone).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusDone,
			"completed_at": completedAt,
			"updated_at":   completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReopenIfDone moves a done task back to todo
func (r *GormTaskRepository) ReopenIfDone(id uint64) (bool, error) {
	return r.transition(id, "status = ?", models.TaskStatusDone, map[string]interface{}{
		"status":       models.TaskStatusTodo,
		"completed_at": nil,
	})
}

// SubmitForReviewIfOpen moves a task to review unless it has been completed meanwhile
func (r *GormTaskRepository) SubmitForReviewIfOpen(id uint64) (bool, error) {
	return r.transition(id, "status <> ?", models.TaskStatusDone, map[string]interface{}{
		"status": models.TaskStatusReview,
	})
}

func (r *GormTaskRepository) transition(id uint64, cond string, status models.TaskStatus, fields map[string]interface{}) (bool, error) {
	fields["updated_at"] = time.Now()
	result := r.db.Model(&models.Task{}).
		Where("id = ? AND "+cond, id, status).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteCompletedForUser removes done tasks of an organization the user owns or is assigned to
func (r *GormTaskRepository) DeleteCompletedForUser(organizationID, userID uint64) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint64
		assignmentSubQuery := tx.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", userID)
		if err := tx.Model(&models.Task{}).
			Where("tasks.organization_id = ? AND tasks.status = ?", organizationID, models.TaskStatusDone).
			Where(tx.Where("tasks.owner_id = ?", userID).Or("EXISTS (?)", assignmentSubQuery)).
			Pluck("tasks.id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.Task{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// UpdateRanks stores smart ranks by task ID
func (r *GormTaskRepository) UpdateRanks(ranks map[uint64]float64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for id, rank := range ranks {
			if err := tx.Model(&models.Task{}).Where("id = ?", id).Update("smart_rank", rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CountMembersByIDs counts how many of the given user IDs belong to the organization
func (r *GormTaskRepository) CountMembersByIDs(userIDs []uint64, organizationID uint64) (int64, error) {
	var count int64

	err := r.db.Model(&models.User{}).
		Joins("JOIN organization_members ON users.id = organization_members.user_id").
		Where("organization_members.organization_id = ? AND users.id IN ?", organizationID, userIDs).
		Count(&count).Error

	return count, err
}

func insertAssignments(tx *gorm.DB, taskID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	assignments := make([]models.TaskAssignment, len(userIDs))
	for i, userID := range userIDs {
		assignments[i] = models.TaskAssignment{
			TaskID: taskID,
			UserID: userID,
		}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignments).Error
}
