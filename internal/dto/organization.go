package dto

import (
	"time"

	"github.com/yukikurage/teamflow/internal/hierarchy"
	"github.com/yukikurage/teamflow/internal/models"
)

// OrganizationWithRoleDTO represents an organization with the user's role
type OrganizationWithRoleDTO struct {
	OrganizationDTO
	Role models.OrganizationRole `json:"role"`
}

// OrganizationMemberDTO represents a member in an organization
type OrganizationMemberDTO struct {
	User      UserDTO                 `json:"user"`
	Role      models.OrganizationRole `json:"role"`
	ReportsTo *uint64                 `json:"reports_to"`
	JoinedAt  time.Time               `json:"joined_at"`
}

// OrganizationDetailDTO represents detailed organization information
type OrganizationDetailDTO struct {
	OrganizationDTO
	Members         []OrganizationMemberDTO   `json:"members"`
	YourRole        models.OrganizationRole   `json:"your_role"`
	AssignableRoles []models.OrganizationRole `json:"assignable_roles"`
}

// OrgChartNodeDTO is one member of the reporting tree
type OrgChartNodeDTO struct {
	Member   OrganizationMemberDTO `json:"member"`
	Depth    int                   `json:"depth"`
	Children []OrgChartNodeDTO     `json:"children"`
}

// MemberScopeDTO lists the members in a viewer's reporting subtree, the viewer included
type MemberScopeDTO struct {
	UserIDs []uint64 `json:"user_ids"`
}

// ToOrganizationWithRoleDTO converts an organization member to DTO with role
func ToOrganizationWithRoleDTO(member models.OrganizationMember) OrganizationWithRoleDTO {
	return OrganizationWithRoleDTO{
		OrganizationDTO: ToOrganizationDTO(member.Organization, false),
		Role:            member.Role,
	}
}

// ToOrganizationMemberDTO converts a member to DTO
func ToOrganizationMemberDTO(member models.OrganizationMember) OrganizationMemberDTO {
	user := ToUserDTO(member.User)
	if user.ID == 0 {
		user.ID = member.UserID
	}
	return OrganizationMemberDTO{
		User:      user,
		Role:      member.Role,
		ReportsTo: member.ReportsTo,
		JoinedAt:  member.JoinedAt,
	}
}

// ToOrganizationDetailDTO converts organization with members to detailed DTO
func ToOrganizationDetailDTO(org models.Organization, members []models.OrganizationMember, yourRole models.OrganizationRole) OrganizationDetailDTO {
	memberDTOs := make([]OrganizationMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToOrganizationMemberDTO(member)
	}

	return OrganizationDetailDTO{
		OrganizationDTO: ToOrganizationDTO(org, true),
		Members:         memberDTOs,
		YourRole:        yourRole,
		AssignableRoles: hierarchy.AssignableRoles(yourRole),
	}
}

// ToOrgChartDTO converts a forest of tree nodes, keeping sibling order
func ToOrgChartDTO(roots []*hierarchy.TreeNode) []OrgChartNodeDTO {
	nodes := make([]OrgChartNodeDTO, len(roots))
	for i, root := range roots {
		nodes[i] = OrgChartNodeDTO{
			Member:   ToOrganizationMemberDTO(root.Member),
			Depth:    root.Depth,
			Children: ToOrgChartDTO(root.Children),
		}
	}
	return nodes
}
