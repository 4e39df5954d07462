package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/yukikurage/teamflow/internal/models"
	"gorm.io/gorm"
)

type index struct {
	model   interface{}
	table   string
	name    string
	columns []string
}

var indexes = []index{
	// Snapshot loads filter by tenant and then by owner
	{&models.Task{}, "tasks", "idx_tasks_org_owner", []string{"organization_id", "owner_id"}},
	{&models.Task{}, "tasks", "idx_tasks_status", []string{"status"}},
	{&models.Task{}, "tasks", "idx_tasks_due_date", []string{"due_date"}},
	{&models.Task{}, "tasks", "idx_tasks_original_task_id", []string{"original_task_id"}},

	{&models.OrganizationMember{}, "organization_members", "idx_org_members_user_id", []string{"user_id"}},
	{&models.OrganizationMember{}, "organization_members", "idx_org_members_reports_to", []string{"organization_id", "reports_to"}},

	{&models.TaskAssignment{}, "task_assignments", "idx_task_assignments_user_id", []string{"user_id"}},
}

// AddIndexes creates the query indexes that AutoMigrate does not derive from tags.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
	}

	return nil
}
