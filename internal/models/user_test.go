package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Memberships(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := User{ID: 1, Organizations: []OrganizationMember{
		{OrganizationID: 7, UserID: 1, Role: RoleMember, JoinedAt: base.Add(time.Hour)},
		{OrganizationID: 5, UserID: 1, Role: RoleLead, JoinedAt: base},
		{OrganizationID: 3, UserID: 1, Role: RoleOwner, JoinedAt: base},
	}}

	primary, ok := user.PrimaryMembership()
	require.True(t, ok)
	assert.Equal(t, uint64(3), primary.OrganizationID)

	m, ok := user.Membership(7)
	require.True(t, ok)
	assert.Equal(t, RoleMember, m.Role)

	_, ok = user.Membership(9)
	assert.False(t, ok)

	_, ok = (&User{}).PrimaryMembership()
	assert.False(t, ok)
}

func TestNewPersonalOrganization(t *testing.T) {
	joined := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	org, owner := NewPersonalOrganization("ada", "ABCD-EFGH", joined)

	assert.Equal(t, "ada's workspace", org.Name)
	assert.Equal(t, "ABCD-EFGH", org.InviteCode)
	assert.Equal(t, RoleOwner, owner.Role)
	assert.Nil(t, owner.ReportsTo)
	assert.True(t, joined.Equal(owner.JoinedAt))
}
