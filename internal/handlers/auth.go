package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/dto"
	apierrors "github.com/yukikurage/teamflow/internal/errors"
	"github.com/yukikurage/teamflow/internal/middleware"
	"github.com/yukikurage/teamflow/internal/services"
)

// AuthHandler serves sign-up, sign-in and the session's viewer context.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup registers a new user together with their personal workspace.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Username string `json:"username" binding:"required,min=3,max=50"`
		Password string `json:"password" binding:"required"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, err := h.authService.Signup(services.SignupInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToViewerDTO(viewer))
}

// Login authenticates a user and starts a session acting in the requested
// organization, or the primary one when none is given.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username       string  `json:"username" binding:"required"`
		Password       string  `json:"password" binding:"required"`
		OrganizationID *uint64 `json:"organization_id"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, err := h.authService.Login(services.LoginInput{
		Username:       req.Username,
		Password:       req.Password,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if err := middleware.SetSessionViewer(c, viewer.User.ID, activeOrganizationID(viewer)); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToViewerDTO(viewer))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}

// GetCurrentUser returns the signed-in user with their memberships. A session
// whose active organization the user has left moves to the primary one.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var stored *uint64
	if orgID, ok := middleware.GetActiveOrganizationID(c); ok {
		stored = &orgID
	}

	viewer, err := h.authService.ResumeViewer(userID, stored)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if stored != nil && activeOrganizationID(viewer) != *stored {
		if err := middleware.SetSessionViewer(c, userID, activeOrganizationID(viewer)); err != nil {
			apierrors.InternalError(c, "Failed to save session")
			return
		}
	}

	c.JSON(http.StatusOK, dto.ToViewerDTO(viewer))
}

// SwitchOrganization changes the organization the session acts in.
func (h *AuthHandler) SwitchOrganization(c *gin.Context) {
	type SwitchRequest struct {
		OrganizationID uint64 `json:"organization_id" binding:"required"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, err := h.authService.Viewer(userID, &req.OrganizationID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if err := middleware.SetSessionViewer(c, userID, req.OrganizationID); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToViewerDTO(viewer))
}

func activeOrganizationID(viewer *services.Viewer) uint64 {
	if viewer.Active == nil {
		return 0
	}
	return viewer.Active.OrganizationID
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUsernameRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotOrganizationMember):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrFailedToHashPassword),
		errors.Is(err, services.ErrFailedToCreateUser),
		errors.Is(err, services.ErrFailedToCreateOrg),
		errors.Is(err, services.ErrFailedToAddMember):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
