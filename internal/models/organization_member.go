package models

import "time"

type OrganizationRole string

const (
	RoleOwner  OrganizationRole = "owner"
	RoleHead   OrganizationRole = "head"
	RoleLead   OrganizationRole = "lead"
	RoleMember OrganizationRole = "member"
)

// Valid reports whether r is a known role.
func (r OrganizationRole) Valid() bool {
	switch r {
	case RoleOwner, RoleHead, RoleLead, RoleMember:
		return true
	}
	return false
}

type OrganizationMember struct {
	OrganizationID uint64           `gorm:"primarykey" json:"organization_id"`
	UserID         uint64           `gorm:"primarykey" json:"user_id"`
	Role           OrganizationRole `gorm:"type:varchar(20);not null" json:"role"`
	ReportsTo      *uint64          `json:"reports_to"`
	JoinedAt       time.Time        `json:"joined_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
