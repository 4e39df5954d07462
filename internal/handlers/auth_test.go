package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/database"
	"github.com/yukikurage/teamflow/internal/dto"
	apierrors "github.com/yukikurage/teamflow/internal/errors"
	"github.com/yukikurage/teamflow/internal/middleware"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/repository"
	"github.com/yukikurage/teamflow/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db          *gorm.DB
	handler     *AuthHandler
	authService *services.AuthService
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo)
	handler := NewAuthHandler(authService)

	return authTestEnv{
		db:          db,
		handler:     handler,
		authService: authService,
	}
}

func newSessionRouter() *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	return r
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)

	r := newSessionRouter()
	r.POST("/api/auth/signup", env.handler.Signup)

	payload := map[string]string{
		"username": "newuser",
		"password": "supersecret",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.ViewerDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, payload["username"], response.User.Username)
	require.Len(t, response.Memberships, 1)
	require.Equal(t, "newuser's workspace", response.Memberships[0].Organization.Name)
	require.Equal(t, models.RoleOwner, response.Memberships[0].Role)
	require.Nil(t, response.Memberships[0].ReportsTo)
	require.NotNil(t, response.ActiveOrganizationID)
	require.Equal(t, response.Memberships[0].Organization.ID, *response.ActiveOrganizationID)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(services.SignupInput{
		Username: "existing",
		Password: "supersecret",
	})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)

	payload := map[string]string{
		"username": "existing",
		"password": "supersecret",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.ViewerDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, payload["username"], response.User.Username)
	require.NotNil(t, response.ActiveOrganizationID)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	viewer, err := env.authService.Signup(services.SignupInput{
		Username: "current-user",
		Password: "supersecret",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(constants.ContextKeyUserID, viewer.User.ID)

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.ViewerDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, viewer.User.Username, response.User.Username)
	require.Len(t, response.Memberships, 1)
}

func TestAuthHandler_SignupErrors(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(services.SignupInput{
		Username: "taken",
		Password: "supersecret",
	})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/signup", env.handler.Signup)

	tests := []struct {
		name     string
		payload  map[string]string
		wantCode int
		wantErr  string
	}{
		{"short password", map[string]string{"username": "alice", "password": "short"}, http.StatusBadRequest, apierrors.ErrCodeInvalidInput},
		{"taken username", map[string]string{"username": "taken", "password": "supersecret"}, http.StatusConflict, apierrors.ErrCodeConflict},
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest, apierrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(r, http.MethodPost, "/api/auth/signup", tt.payload)
			require.Equal(t, tt.wantCode, w.Code)

			var response apierrors.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			require.Equal(t, tt.wantErr, response.Code)
		})
	}
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(services.SignupInput{
		Username: "existing",
		Password: "supersecret",
	})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)

	w := performJSON(r, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "existing",
		"password": "wrong-password",
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var response apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, apierrors.ErrCodeInvalidCredentials, response.Code)
}

func TestAuthHandler_LogoutClearsSession(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(services.SignupInput{
		Username: "existing",
		Password: "supersecret",
	})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)
	r.POST("/api/auth/logout", env.handler.Logout)
	r.GET("/api/auth/me", middleware.RequireAuth(), env.handler.GetCurrentUser)

	login := performJSON(r, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "existing",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, login.Code)
	cookies := login.Result().Cookies()

	me := func(cookies []*http.Cookie) int {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, me(cookies))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusUnauthorized, me(w.Result().Cookies()))
}

// joinTeam adds userID to a new organization below managerID, joined after signup
func joinTeam(t *testing.T, db *gorm.DB, name string, userID uint64, role models.OrganizationRole, managerID *uint64) models.Organization {
	t.Helper()

	org := models.Organization{Name: name, InviteCode: name + "-CODE"}
	require.NoError(t, db.Create(&org).Error)
	require.NoError(t, db.Create(&models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           role,
		ReportsTo:      managerID,
		JoinedAt:       time.Now().Add(time.Hour),
	}).Error)
	return org
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestAuthHandler_ActiveOrganization(t *testing.T) {
	env := setupAuthTestEnv(t)

	viewer, err := env.authService.Signup(services.SignupInput{Username: "grace", Password: "supersecret"})
	require.NoError(t, err)
	personal := viewer.Active.OrganizationID

	manager := uint64(42)
	team := joinTeam(t, env.db, "Platform", viewer.User.ID, models.RoleLead, &manager)
	other := models.Organization{Name: "Elsewhere", InviteCode: "ELSE-CODE"}
	require.NoError(t, env.db.Create(&other).Error)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)
	r.GET("/api/auth/me", middleware.RequireAuth(), env.handler.GetCurrentUser)
	r.PUT("/api/auth/organization", middleware.RequireAuth(), env.handler.SwitchOrganization)
	r.GET("/api/active", middleware.RequireAuth(), func(c *gin.Context) {
		orgID, ok := parseOrganizationQuery(c)
		if ok {
			c.JSON(http.StatusOK, gin.H{"organization_id": orgID})
		}
	})

	activeOf := func(cookies []*http.Cookie) uint64 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, withCookies(httptest.NewRequest(http.MethodGet, "/api/active", nil), cookies))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decodeJSON[struct {
			OrganizationID uint64 `json:"organization_id"`
		}](t, w).OrganizationID
	}

	t.Run("login defaults to the personal workspace", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/api/auth/login", map[string]string{"username": "grace", "password": "supersecret"})
		require.Equal(t, http.StatusOK, w.Code)

		response := decodeJSON[dto.ViewerDTO](t, w)
		require.NotNil(t, response.ActiveOrganizationID)
		assert.Equal(t, personal, *response.ActiveOrganizationID)
		require.Len(t, response.Memberships, 2)
		assert.Equal(t, "Platform", response.Memberships[1].Organization.Name)
		assert.Equal(t, models.RoleLead, response.Memberships[1].Role)
		require.NotNil(t, response.Memberships[1].ReportsTo)
		assert.Equal(t, manager, *response.Memberships[1].ReportsTo)

		assert.Equal(t, personal, activeOf(w.Result().Cookies()))
	})

	t.Run("login into a chosen organization", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/api/auth/login", gin.H{"username": "grace", "password": "supersecret", "organization_id": team.ID})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, team.ID, activeOf(w.Result().Cookies()))
	})

	t.Run("login into a foreign organization", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/api/auth/login", gin.H{"username": "grace", "password": "supersecret", "organization_id": other.ID})
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("switch organization", func(t *testing.T) {
		login := performJSON(r, http.MethodPost, "/api/auth/login", map[string]string{"username": "grace", "password": "supersecret"})
		require.Equal(t, http.StatusOK, login.Code)

		body, err := json.Marshal(gin.H{"organization_id": team.ID})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut, "/api/auth/organization", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, withCookies(req, login.Result().Cookies()))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, team.ID, activeOf(w.Result().Cookies()))

		body, err = json.Marshal(gin.H{"organization_id": other.ID})
		require.NoError(t, err)
		req = httptest.NewRequest(http.MethodPut, "/api/auth/organization", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, withCookies(req, login.Result().Cookies()))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("me falls back after leaving the active organization", func(t *testing.T) {
		login := performJSON(r, http.MethodPost, "/api/auth/login", gin.H{"username": "grace", "password": "supersecret", "organization_id": team.ID})
		require.Equal(t, http.StatusOK, login.Code)

		require.NoError(t, env.db.Where("organization_id = ? AND user_id = ?", team.ID, viewer.User.ID).
			Delete(&models.OrganizationMember{}).Error)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, withCookies(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), login.Result().Cookies()))
		require.Equal(t, http.StatusOK, w.Code)

		response := decodeJSON[dto.ViewerDTO](t, w)
		require.NotNil(t, response.ActiveOrganizationID)
		assert.Equal(t, personal, *response.ActiveOrganizationID)
		assert.Len(t, response.Memberships, 1)
		assert.Equal(t, personal, activeOf(w.Result().Cookies()))
	})
}

func TestAuthHandler_OrganizationRequiredWithoutSession(t *testing.T) {
	r := gin.New()
	r.GET("/api/active", asUser(7), func(c *gin.Context) {
		if _, ok := parseOrganizationQuery(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := performJSON(r, http.MethodGet, "/api/active", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
