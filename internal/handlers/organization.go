package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/dto"
	apierrors "github.com/yukikurage/teamflow/internal/errors"
	"github.com/yukikurage/teamflow/internal/middleware"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/services"
)

// OrganizationHandler serves organization, membership and org chart endpoints.
type OrganizationHandler struct {
	orgService *services.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
	}
}

// CreateOrganization creates a new organization owned by the caller
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateOrgRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.CreateOrganization(services.CreateOrganizationInput{
		Name:    req.Name,
		OwnerID: userID,
	})
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationDTO(*org, true))
}

// ListOrganizations returns all organizations the user is a member of
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.orgService.ListOrganizationsForUser(userID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	orgs := make([]dto.OrganizationWithRoleDTO, len(memberships))
	for i, m := range memberships {
		orgs[i] = dto.ToOrganizationWithRoleDTO(m)
	}

	c.JSON(http.StatusOK, gin.H{
		"organizations": orgs,
	})
}

// GetOrganization returns organization details with its members
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	org, member, ok := organizationFromContext(c)
	if !ok {
		return
	}

	found, members, err := h.orgService.GetOrganizationWithMembers(org.ID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDetailDTO(*found, members, member.Role))
}

// UpdateOrganization renames an organization
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	org, _, ok := organizationFromContext(c)
	if !ok {
		return
	}

	type UpdateOrgRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.orgService.UpdateOrganizationName(org.ID, req.Name)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*updated, true))
}

// DeleteOrganization deletes an organization with its tasks and members
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	org, _, ok := organizationFromContext(c)
	if !ok {
		return
	}

	if err := h.orgService.DeleteOrganization(org.ID); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Organization deleted",
	})
}

// JoinOrganization adds the caller to the organization behind an invite code
func (h *OrganizationHandler) JoinOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type JoinRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.JoinOrganizationByInvite(userID, req.InviteCode)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Joined organization",
		"organization": dto.ToOrganizationDTO(*org, false),
	})
}

// RegenerateInviteCode issues a new invite code for the organization
func (h *OrganizationHandler) RegenerateInviteCode(c *gin.Context) {
	org, _, ok := organizationFromContext(c)
	if !ok {
		return
	}

	updated, err := h.orgService.RegenerateInviteCode(org.ID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*updated, true))
}

// RemoveMember removes a member from the organization
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	org, member, ok := organizationFromContext(c)
	if !ok {
		return
	}

	targetID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	if err := h.orgService.RemoveMember(org.ID, member.UserID, targetID); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed",
	})
}

// GetOrgChart returns the reporting tree of the organization
func (h *OrganizationHandler) GetOrgChart(c *gin.Context) {
	org, _, ok := organizationFromContext(c)
	if !ok {
		return
	}

	roots, err := h.orgService.GetOrgChart(org.ID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roots": dto.ToOrgChartDTO(roots),
	})
}

// GetMemberScope returns the caller and every member below them
func (h *OrganizationHandler) GetMemberScope(c *gin.Context) {
	org, member, ok := organizationFromContext(c)
	if !ok {
		return
	}

	ids, err := h.orgService.VisibleMemberIDs(org.ID, member.UserID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MemberScopeDTO{UserIDs: ids})
}

// SetReportsTo changes whom a member reports to. A null manager_id makes the
// member a root of the chart.
func (h *OrganizationHandler) SetReportsTo(c *gin.Context) {
	org, member, ok := organizationFromContext(c)
	if !ok {
		return
	}

	targetID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	type ReportsToRequest struct {
		ManagerID *uint64 `json:"manager_id"`
	}

	var req ReportsToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.orgService.SetReportsTo(org.ID, member.UserID, targetID, req.ManagerID); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reporting line updated",
	})
}

// SetRole changes a member's role
func (h *OrganizationHandler) SetRole(c *gin.Context) {
	org, member, ok := organizationFromContext(c)
	if !ok {
		return
	}

	targetID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	type RoleRequest struct {
		Role models.OrganizationRole `json:"role" binding:"required"`
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.orgService.SetRole(org.ID, member.UserID, targetID, req.Role); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated",
	})
}

// organizationFromContext reads what RequireOrganizationAccess stored
func organizationFromContext(c *gin.Context) (models.Organization, models.OrganizationMember, bool) {
	value, exists := c.Get(constants.ContextKeyOrg)
	if !exists {
		apierrors.InternalError(c, "Organization not found in context")
		return models.Organization{}, models.OrganizationMember{}, false
	}
	org, ok := value.(models.Organization)
	if !ok {
		apierrors.InternalError(c, "Invalid organization data")
		return models.Organization{}, models.OrganizationMember{}, false
	}

	member, ok := middleware.GetOrganizationMember(c)
	if !ok {
		apierrors.InternalError(c, "Organization member not found in context")
		return models.Organization{}, models.OrganizationMember{}, false
	}
	return org, member, true
}

func parseUserIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return 0, false
	}
	return id, true
}

func respondOrganizationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidOrganizationName),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrCannotRemoveYourself),
		errors.Is(err, services.ErrCannotChangeOwnRole),
		errors.Is(err, services.ErrManagerNotMember):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidInviteCode),
		errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrOrganizationMemberNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotOrganizationMember):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInsufficientRole):
		apierrors.InsufficientPermissions(c, err.Error())
	case errors.Is(err, services.ErrAlreadyOrganizationMember):
		apierrors.AlreadyExists(c, err.Error())
	case errors.Is(err, services.ErrReportingCycle):
		apierrors.ReportingCycle(c)
	case errors.Is(err, services.ErrInviteCodeGenerationFailed):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
