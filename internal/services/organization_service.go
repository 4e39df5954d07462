package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/teamflow/internal/hierarchy"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/repository"
	"github.com/yukikurage/teamflow/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound       = errors.New("organization not found")
	ErrInvalidOrganizationName    = errors.New("organization name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invalid invite code")
	ErrAlreadyOrganizationMember  = errors.New("user is already a member of this organization")
	ErrCannotRemoveYourself       = errors.New("cannot remove yourself from the organization")
	ErrOrganizationMemberNotFound = errors.New("organization member not found")
	ErrInsufficientRole           = errors.New("your role does not allow this change")
	ErrInvalidRole                = errors.New("invalid organization role")
	ErrCannotChangeOwnRole        = errors.New("cannot change your own role")
	ErrManagerNotMember           = errors.New("manager is not a member of the organization")
	ErrReportingCycle             = errors.New("reporting change would create a cycle")
)

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo repository.OrganizationRepository
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo: orgRepo,
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name    string
	OwnerID uint64
}

// CreateOrganization creates a new organization and assigns the owner.
func (s *OrganizationService) CreateOrganization(input CreateOrganizationInput) (*models.Organization, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidOrganizationName
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org := &models.Organization{
		Name:       strings.TrimSpace(input.Name),
		InviteCode: inviteCode,
	}

	if err := s.orgRepo.Create(org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	member := &models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         input.OwnerID,
		Role:           models.RoleOwner,
		JoinedAt:       time.Now(),
	}

	if err := s.orgRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add owner to organization: %w", err)
	}

	return org, nil
}

// ListOrganizationsForUser returns organizations the user belongs to.
func (s *OrganizationService) ListOrganizationsForUser(userID uint64) ([]models.OrganizationMember, error) {
	memberships, err := s.orgRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return memberships, nil
}

// GetOrganizationWithMembers returns an organization and all of its members.
func (s *OrganizationService) GetOrganizationWithMembers(orgID uint64) (*models.Organization, []models.OrganizationMember, error) {
	org, err := s.orgRepo.FindByID(orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrganizationNotFound
		}
		return nil, nil, fmt.Errorf("failed to find organization: %w", err)
	}

	members, err := s.orgRepo.ListMembers(orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list organization members: %w", err)
	}

	return org, members, nil
}

// UpdateOrganizationName updates an organization's name.
func (s *OrganizationService) UpdateOrganizationName(orgID uint64, name string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidOrganizationName
	}

	org, err := s.orgRepo.FindByID(orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	org.Name = strings.TrimSpace(name)
	if err := s.orgRepo.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// DeleteOrganization removes an organization.
func (s *OrganizationService) DeleteOrganization(orgID uint64) error {
	// Ensure organization exists
	if _, err := s.orgRepo.FindByID(orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to find organization: %w", err)
	}

	if err := s.orgRepo.Delete(orgID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	return nil
}

// JoinOrganizationByInvite adds a user to an organization via invite code.
func (s *OrganizationService) JoinOrganizationByInvite(userID uint64, inviteCode string) (*models.Organization, error) {
	org, err := s.orgRepo.FindByInviteCode(inviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find organization by invite code: %w", err)
	}

	if _, err := s.orgRepo.FindMember(org.ID, userID); err == nil {
		return nil, ErrAlreadyOrganizationMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           models.RoleMember,
		JoinedAt:       time.Now(),
	}

	if err := s.orgRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member to organization: %w", err)
	}

	return org, nil
}

// RegenerateInviteCode generates a new invite code for the organization.
func (s *OrganizationService) RegenerateInviteCode(orgID uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org.InviteCode = code
	if err := s.orgRepo.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return org, nil
}

// RemoveMember removes a member from the organization. The actor's role must
// outrank the target's.
func (s *OrganizationService) RemoveMember(orgID, actorID, targetID uint64) error {
	if targetID == actorID {
		return ErrCannotRemoveYourself
	}

	actor, target, err := s.actorAndTarget(orgID, actorID, targetID)
	if err != nil {
		return err
	}
	if !hierarchy.CanManageRole(actor.Role, target.Role) {
		return ErrInsufficientRole
	}

	if err := s.orgRepo.RemoveMember(orgID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// GetOrgChart returns the reporting forest of an organization.
func (s *OrganizationService) GetOrgChart(orgID uint64) ([]*hierarchy.TreeNode, error) {
	members, err := s.orgRepo.ListMembers(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", err)
	}
	return hierarchy.BuildTree(members), nil
}

// VisibleMemberIDs returns the viewer and everyone below them in the
// reporting tree, in ascending order. Assignment suggestions are limited to it.
func (s *OrganizationService) VisibleMemberIDs(orgID, viewerID uint64) ([]uint64, error) {
	if _, err := findMembership(s.orgRepo, orgID, viewerID); err != nil {
		return nil, err
	}

	members, err := s.orgRepo.ListMembers(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", err)
	}
	return sortedIDs(hierarchy.GetDescendants(viewerID, members)), nil
}

// SetReportsTo moves target under managerID, or makes target a root when
// managerID is nil. Moves that would close a reporting loop are refused.
func (s *OrganizationService) SetReportsTo(orgID, actorID, targetID uint64, managerID *uint64) error {
	actor, target, err := s.actorAndTarget(orgID, actorID, targetID)
	if err != nil {
		return err
	}
	if !hierarchy.CanManageRole(actor.Role, target.Role) {
		return ErrInsufficientRole
	}

	if managerID != nil {
		manager, err := s.orgRepo.FindMember(orgID, *managerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrManagerNotMember
			}
			return fmt.Errorf("failed to find manager: %w", err)
		}
		if !hierarchy.CanAssignManager(actor.Role, manager.Role) {
			return ErrInsufficientRole
		}

		members, err := s.orgRepo.ListMembers(orgID)
		if err != nil {
			return fmt.Errorf("failed to list organization members: %w", err)
		}
		if hierarchy.CheckCycle(targetID, *managerID, members) {
			return ErrReportingCycle
		}
	}

	target.ReportsTo = managerID
	if err := s.orgRepo.UpdateMember(target); err != nil {
		return fmt.Errorf("failed to update reporting line: %w", err)
	}
	return nil
}

// SetRole changes target's role. The actor must outrank both the current and
// the new role; ownership cannot be granted.
func (s *OrganizationService) SetRole(orgID, actorID, targetID uint64, role models.OrganizationRole) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if actorID == targetID {
		return ErrCannotChangeOwnRole
	}

	actor, target, err := s.actorAndTarget(orgID, actorID, targetID)
	if err != nil {
		return err
	}
	if !hierarchy.CanManageRole(actor.Role, target.Role) || !roleIn(role, hierarchy.AssignableRoles(actor.Role)) {
		return ErrInsufficientRole
	}

	target.Role = role
	if err := s.orgRepo.UpdateMember(target); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

func (s *OrganizationService) actorAndTarget(orgID, actorID, targetID uint64) (*models.OrganizationMember, *models.OrganizationMember, error) {
	actor, err := findMembership(s.orgRepo, orgID, actorID)
	if err != nil {
		return nil, nil, err
	}

	target, err := s.orgRepo.FindMember(orgID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrganizationMemberNotFound
		}
		return nil, nil, fmt.Errorf("failed to find organization member: %w", err)
	}
	return actor, target, nil
}

func roleIn(role models.OrganizationRole, roles []models.OrganizationRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
