package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/models"
	"gorm.io/gorm"
)

func TestUserRepository_CreateWithPersonalOrganization(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := NewUserRepository(db)

	joined := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := &models.User{Username: "ada", PasswordHash: "x"}
	org, owner := models.NewPersonalOrganization(user.Username, "ADA-0001", joined)
	require.NoError(t, repo.CreateWithPersonalOrganization(user, org, owner))

	require.Len(t, user.Organizations, 1)
	assert.Equal(t, org.ID, user.Organizations[0].OrganizationID)
	assert.Equal(t, "ada's workspace", user.Organizations[0].Organization.Name)
	assert.Equal(t, models.RoleOwner, user.Organizations[0].Role)

	var count int64
	require.NoError(t, db.Model(&models.OrganizationMember{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUserRepository_CreateRollsBackOnDuplicateInvite(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := NewUserRepository(db)

	first := &models.User{Username: "ada", PasswordHash: "x"}
	org, owner := models.NewPersonalOrganization("ada", "DUP-0001", time.Now())
	require.NoError(t, repo.CreateWithPersonalOrganization(first, org, owner))

	second := &models.User{Username: "grace", PasswordHash: "x"}
	org, owner = models.NewPersonalOrganization("grace", "DUP-0001", time.Now())
	err := repo.CreateWithPersonalOrganization(second, org, owner)
	assert.ErrorIs(t, err, ErrCreateOrganization)

	_, err = repo.FindByUsername("grace")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_FindByIDLoadsMemberships(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := NewUserRepository(db)

	joined := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := &models.User{Username: "ada", PasswordHash: "x"}
	org, owner := models.NewPersonalOrganization("ada", "ADA-0001", joined)
	require.NoError(t, repo.CreateWithPersonalOrganization(user, org, owner))

	team := models.Organization{Name: "Platform", InviteCode: "PLAT-0001"}
	require.NoError(t, db.Create(&team).Error)
	manager := uint64(99)
	require.NoError(t, db.Create(&models.OrganizationMember{
		OrganizationID: team.ID,
		UserID:         user.ID,
		Role:           models.RoleLead,
		ReportsTo:      &manager,
		JoinedAt:       joined.Add(24 * time.Hour),
	}).Error)

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	require.Len(t, found.Organizations, 2)
	assert.Equal(t, org.ID, found.Organizations[0].OrganizationID)
	assert.Equal(t, "Platform", found.Organizations[1].Organization.Name)
	require.NotNil(t, found.Organizations[1].ReportsTo)
	assert.Equal(t, manager, *found.Organizations[1].ReportsTo)

	_, err = repo.FindByID(user.ID + 100)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
