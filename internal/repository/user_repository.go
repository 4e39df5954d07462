package repository

import (
	"errors"
	"fmt"

	"github.com/yukikurage/teamflow/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateUser is returned when the signup transaction cannot insert the user.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateOrganization is returned when the signup transaction cannot insert the workspace.
	ErrCreateOrganization = errors.New("user repository: create organization failed")
	// ErrCreateOrganizationMember is returned when the signup transaction cannot insert the owner membership.
	ErrCreateOrganizationMember = errors.New("user repository: create organization member failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// CreateWithPersonalOrganization inserts the user, their workspace and the
// owner membership in one transaction. On success the membership, with its
// organization, is attached to user.Organizations.
func (r *GormUserRepository) CreateWithPersonalOrganization(user *models.User, org *models.Organization, owner *models.OrganizationMember) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOrganization, err)
		}

		owner.OrganizationID = org.ID
		owner.UserID = user.ID
		if err := tx.Omit("Organization", "User").Create(owner).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOrganizationMember, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	membership := *owner
	membership.Organization = *org
	user.Organizations = []models.OrganizationMember{membership}
	return nil
}

// FindByID loads a user with their memberships and organizations, earliest
// joined first
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	err := r.db.
		Preload("Organizations", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, organization_id ASC")
		}).
		Preload("Organizations.Organization").
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
