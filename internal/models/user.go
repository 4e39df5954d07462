package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	OwnedTasks    []Task               `gorm:"foreignKey:OwnerID" json:"-"`
	Assignments   []TaskAssignment     `gorm:"foreignKey:UserID" json:"-"`
	Organizations []OrganizationMember `gorm:"foreignKey:UserID" json:"-"`
}

// Membership returns the user's membership in orgID, if loaded.
func (u *User) Membership(orgID uint64) (*OrganizationMember, bool) {
	for i := range u.Organizations {
		if u.Organizations[i].OrganizationID == orgID {
			return &u.Organizations[i], true
		}
	}
	return nil, false
}

// PrimaryMembership is the earliest joined organization, normally the
// personal workspace from signup.
func (u *User) PrimaryMembership() (*OrganizationMember, bool) {
	var primary *OrganizationMember
	for i := range u.Organizations {
		m := &u.Organizations[i]
		if primary == nil || m.JoinedAt.Before(primary.JoinedAt) ||
			(m.JoinedAt.Equal(primary.JoinedAt) && m.OrganizationID < primary.OrganizationID) {
			primary = m
		}
	}
	return primary, primary != nil
}
