package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamflow/internal/access"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/database"
	apierrors "github.com/yukikurage/teamflow/internal/errors"
	"github.com/yukikurage/teamflow/internal/models"
)

// RequireTaskAccess loads the task and checks that the user may see it: a
// member of the task's organization who owns it or is assigned to it.
// Every failure is a 404 so task existence does not leak.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var task models.Task
		if err := database.GetDB().
			Preload("Assignments").
			First(&task, taskID).Error; err != nil {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		var count int64
		err = database.GetDB().Model(&models.OrganizationMember{}).
			Where("organization_id = ? AND user_id = ?", task.OrganizationID, userID).
			Count(&count).Error
		if err != nil {
			apierrors.InternalError(c, "Failed to verify task access")
			c.Abort()
			return
		}

		viewer := &access.Viewer{ID: userID, OrganizationID: task.OrganizationID}
		if count == 0 || !access.Visible(&task, viewer) {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}
