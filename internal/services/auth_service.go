package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/repository"
	"github.com/yukikurage/teamflow/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToCreateOrg    = errors.New("failed to create organization")
	ErrFailedToAddMember    = errors.New("failed to add user to organization")
)

// AuthService handles authentication and resolves who a session acts as.
type AuthService struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// Viewer is a signed-in user together with the organization their requests
// act in when they do not name one.
type Viewer struct {
	User *models.User
	// Active is nil when the user belongs to no organization.
	Active *models.OrganizationMember
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Password string
}

// Signup creates a new user owning a personal workspace, which becomes the
// viewer's active organization.
func (s *AuthService) Signup(input SignupInput) (*Viewer, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrFailedToCreateOrg
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
	}
	org, owner := models.NewPersonalOrganization(username, inviteCode, s.now())

	if err := s.userRepo.CreateWithPersonalOrganization(user, org, owner); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateUser):
			return nil, ErrFailedToCreateUser
		case errors.Is(err, repository.ErrCreateOrganization):
			return nil, ErrFailedToCreateOrg
		case errors.Is(err, repository.ErrCreateOrganizationMember):
			return nil, ErrFailedToAddMember
		default:
			return nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	return viewerIn(user, nil)
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
	// OrganizationID picks the active organization; the primary one is used when nil.
	OrganizationID *uint64
}

// Login verifies credentials and resolves the active organization.
func (s *AuthService) Login(input LoginInput) (*Viewer, error) {
	user, err := s.userRepo.FindByUsername(strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.Viewer(user.ID, input.OrganizationID)
}

// Viewer loads userID with their memberships. A requested organization must
// be one of them.
func (s *AuthService) Viewer(userID uint64, organizationID *uint64) (*Viewer, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return viewerIn(user, organizationID)
}

// ResumeViewer is Viewer for a stored session. An organization the user has
// since left falls back to the primary one instead of failing.
func (s *AuthService) ResumeViewer(userID uint64, organizationID *uint64) (*Viewer, error) {
	viewer, err := s.Viewer(userID, organizationID)
	if errors.Is(err, ErrNotOrganizationMember) {
		return s.Viewer(userID, nil)
	}
	return viewer, err
}

func viewerIn(user *models.User, organizationID *uint64) (*Viewer, error) {
	viewer := &Viewer{User: user}
	if organizationID != nil {
		member, ok := user.Membership(*organizationID)
		if !ok {
			return nil, ErrNotOrganizationMember
		}
		viewer.Active = member
		return viewer, nil
	}
	viewer.Active, _ = user.PrimaryMembership()
	return viewer, nil
}
