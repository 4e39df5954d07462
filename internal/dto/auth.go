package dto

import (
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/services"
)

// MembershipDTO is one organization the user belongs to and their place in it
type MembershipDTO struct {
	Organization OrganizationDTO         `json:"organization"`
	Role         models.OrganizationRole `json:"role"`
	ReportsTo    *uint64                 `json:"reports_to"`
}

// ViewerDTO describes the signed-in user and the organization requests
// default to
type ViewerDTO struct {
	User                 UserDTO         `json:"user"`
	Memberships          []MembershipDTO `json:"memberships"`
	ActiveOrganizationID *uint64         `json:"active_organization_id"`
}

// ToViewerDTO converts a resolved viewer to DTO
func ToViewerDTO(viewer *services.Viewer) ViewerDTO {
	memberships := make([]MembershipDTO, 0, len(viewer.User.Organizations))
	for _, m := range viewer.User.Organizations {
		org := ToOrganizationDTO(m.Organization, false)
		if org.ID == 0 {
			org.ID = m.OrganizationID
		}
		memberships = append(memberships, MembershipDTO{
			Organization: org,
			Role:         m.Role,
			ReportsTo:    m.ReportsTo,
		})
	}

	result := ViewerDTO{
		User:        ToUserDTO(*viewer.User),
		Memberships: memberships,
	}
	if viewer.Active != nil {
		id := viewer.Active.OrganizationID
		result.ActiveOrganizationID = &id
	}
	return result
}
