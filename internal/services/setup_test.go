package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixedNow is a Tuesday.
var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type serviceTestEnv struct {
	db        *gorm.DB
	taskRepo  repository.TaskRepository
	orgRepo   repository.OrganizationRepository
	tasks     *TaskService
	orgs      *OrganizationService
	calendars *CalendarService

	orgID      uint64
	otherOrgID uint64
	owner      models.User
	member     models.User
	outsider   models.User
}

func setupServiceTestEnv(t *testing.T) *serviceTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection would get its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Task{},
		&models.TaskAssignment{},
	))

	env := &serviceTestEnv{
		db:       db,
		taskRepo: repository.NewTaskRepository(db),
		orgRepo:  repository.NewOrganizationRepository(db),
	}
	env.tasks = NewTaskService(env.taskRepo, env.orgRepo, nil, time.UTC)
	env.tasks.now = func() time.Time { return fixedNow }
	env.orgs = NewOrganizationService(env.orgRepo)
	env.calendars = NewCalendarService(env.taskRepo, env.orgRepo, time.UTC)

	org := models.Organization{Name: "Acme", InviteCode: "ACME-0000-0001"}
	require.NoError(t, db.Create(&org).Error)
	other := models.Organization{Name: "Globex", InviteCode: "GLBX-0000-0001"}
	require.NoError(t, db.Create(&other).Error)
	env.orgID = org.ID
	env.otherOrgID = other.ID

	env.owner = env.addUser(t, "owner", env.orgID, models.RoleOwner, nil)
	env.member = env.addUser(t, "member", env.orgID, models.RoleMember, nil)
	env.outsider = env.addUser(t, "outsider", env.otherOrgID, models.RoleOwner, nil)

	return env
}

func (e *serviceTestEnv) addUser(t *testing.T, username string, orgID uint64, role models.OrganizationRole, reportsTo *uint64) models.User {
	t.Helper()

	user := models.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, e.db.Create(&user).Error)
	require.NoError(t, e.db.Create(&models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         user.ID,
		Role:           role,
		ReportsTo:      reportsTo,
		JoinedAt:       fixedNow,
	}).Error)
	return user
}

func (e *serviceTestEnv) createTask(t *testing.T, input CreateTaskInput) *models.Task {
	t.Helper()

	if input.OrganizationID == 0 {
		input.OrganizationID = e.orgID
	}
	if input.OwnerID == 0 {
		input.OwnerID = e.owner.ID
	}
	task, err := e.tasks.CreateTask(input)
	require.NoError(t, err)
	return task
}

func (e *serviceTestEnv) countTasks(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.Task{}).Count(&count).Error)
	return count
}

func ptr[T any](v T) *T {
	return &v
}

func at(day, hour, minute int) *time.Time {
	t := time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
	return &t
}
