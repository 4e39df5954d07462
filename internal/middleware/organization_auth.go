package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/database"
	apierrors "github.com/yukikurage/teamflow/internal/errors"
	"github.com/yukikurage/teamflow/internal/hierarchy"
	"github.com/yukikurage/teamflow/internal/models"
)

// RequireOrganizationAccess checks if the user is a member of the organization
func RequireOrganizationAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid organization ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var org models.Organization
		if err := database.GetDB().First(&org, orgID).Error; err != nil {
			apierrors.NotFound(c, "Organization not found")
			c.Abort()
			return
		}

		var member models.OrganizationMember
		err = database.GetDB().Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error
		if err != nil {
			// 404 instead of 403 to avoid leaking organization existence
			apierrors.NotFound(c, "Organization not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyOrg, org)
		c.Set(constants.ContextKeyMember, member)
		c.Next()
	}
}

// RequireOrganizationRole checks that the member set by RequireOrganizationAccess
// holds at least min
func RequireOrganizationRole(min models.OrganizationRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := GetOrganizationMember(c)
		if !ok {
			apierrors.Forbidden(c, "Organization access required")
			c.Abort()
			return
		}

		if hierarchy.RolePriority(member.Role) < hierarchy.RolePriority(min) {
			apierrors.Forbidden(c, "Your role does not allow this action")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireOrganizationOwner checks if the user is an owner of the organization
func RequireOrganizationOwner() gin.HandlerFunc {
	return RequireOrganizationRole(models.RoleOwner)
}

// GetOrganizationMember returns the membership stored by RequireOrganizationAccess
func GetOrganizationMember(c *gin.Context) (models.OrganizationMember, bool) {
	value, exists := c.Get(constants.ContextKeyMember)
	if !exists {
		return models.OrganizationMember{}, false
	}
	member, ok := value.(models.OrganizationMember)
	return member, ok
}
