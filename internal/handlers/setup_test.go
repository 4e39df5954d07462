package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/database"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/repository"
	"github.com/yukikurage/teamflow/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerTestEnv struct {
	db              *gorm.DB
	orgService      *services.OrganizationService
	taskService     *services.TaskService
	calendarService *services.CalendarService
}

func setupHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Task{},
		&models.TaskAssignment{},
	))

	// Middleware reads the shared handle
	database.SetDB(db)

	taskRepo := repository.NewTaskRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)

	return &handlerTestEnv{
		db:              db,
		orgService:      services.NewOrganizationService(orgRepo),
		taskService:     services.NewTaskService(taskRepo, orgRepo, nil, time.UTC),
		calendarService: services.NewCalendarService(taskRepo, orgRepo, time.UTC),
	}
}

func (e *handlerTestEnv) createUser(t *testing.T, username string) models.User {
	t.Helper()

	user := models.User{Username: username, PasswordHash: "hashed"}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *handlerTestEnv) createOrganization(t *testing.T, name string, ownerID uint64) models.Organization {
	t.Helper()

	org, err := e.orgService.CreateOrganization(services.CreateOrganizationInput{
		Name:    name,
		OwnerID: ownerID,
	})
	require.NoError(t, err)
	return *org
}

func (e *handlerTestEnv) addMember(t *testing.T, orgID, userID uint64, role models.OrganizationRole, reportsTo *uint64) {
	t.Helper()

	require.NoError(t, e.db.Create(&models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		ReportsTo:      reportsTo,
		JoinedAt:       time.Now(),
	}).Error)
}

// asUser stands in for RequireAuth
func asUser(userID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

func performJSON(r *gin.Engine, method, url string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload == nil {
		body = bytes.NewReader(nil)
	} else {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, url, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
