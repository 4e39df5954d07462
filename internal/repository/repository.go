package repository

import (
	"time"

	"github.com/yukikurage/teamflow/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task together with its assignments
	Create(task *models.Task) error

	// FindByID finds a task by ID with its assignments loaded
	FindByID(id uint64) (*models.Task, error)

	// ListForViewer loads the tasks of an organization that the user owns or is assigned to
	ListForViewer(organizationID, userID uint64) (map[uint64]models.Task, error)

	// Update writes the named columns of task and nothing else
	Update(task *models.Task, columns ...string) error

	// ReplaceAssignees replaces the assignee set and stores the derived visibility
	ReplaceAssignees(task *models.Task) error

	// Delete permanently removes a task
	Delete(id uint64) error

	// CompleteIfOpen marks a task done unless it already is; it reports whether a row changed
	CompleteIfOpen(id uint64, completedAt time.Time) (bool, error)

	// ReopenIfDone moves a done task back to todo; it reports whether a row changed
	ReopenIfDone(id uint64) (bool, error)

	// SubmitForReviewIfOpen moves a task that is not done to review; it reports whether a row changed
	SubmitForReviewIfOpen(id uint64) (bool, error)

	// DeleteCompletedForUser removes done tasks of an organization the user owns or is assigned to
	DeleteCompletedForUser(organizationID, userID uint64) (int64, error)

	// UpdateRanks stores smart ranks by task ID
	UpdateRanks(ranks map[uint64]float64) error

	// CountMembersByIDs counts how many of the given user IDs belong to the organization
	CountMembersByIDs(userIDs []uint64, organizationID uint64) (int64, error)
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(id uint64) (*models.Organization, error)

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(code string) (*models.Organization, error)

	// Update updates an organization
	Update(org *models.Organization) error

	// Delete deletes an organization and all related data
	Delete(id uint64) error

	// AddMember adds a member to an organization
	AddMember(member *models.OrganizationMember) error

	// UpdateMember saves a member's role and manager
	UpdateMember(member *models.OrganizationMember) error

	// RemoveMember removes a member from an organization
	RemoveMember(organizationID, userID uint64) error

	// FindMember finds a specific organization member
	FindMember(organizationID, userID uint64) (*models.OrganizationMember, error)

	// ListMembersByUserID lists all organizations a user is a member of
	ListMembersByUserID(userID uint64) ([]models.OrganizationMember, error)

	// ListMembers lists all members of an organization
	ListMembers(organizationID uint64) ([]models.OrganizationMember, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateWithPersonalOrganization creates a user, their personal organization,
	// and the owner membership within a single transaction.
	CreateWithPersonalOrganization(user *models.User, org *models.Organization, owner *models.OrganizationMember) error

	// FindByID finds a user by ID with their memberships loaded
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}
