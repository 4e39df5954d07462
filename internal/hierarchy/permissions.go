package hierarchy

import "github.com/yukikurage/teamflow/internal/models"

var rolePriority = map[models.OrganizationRole]int{
	models.RoleOwner:  3,
	models.RoleHead:   2,
	models.RoleLead:   1,
	models.RoleMember: 0,
}

// RolePriority ranks roles; unknown roles rank as members.
func RolePriority(role models.OrganizationRole) int {
	return rolePriority[role]
}

// CanManageRole reports whether actor may change or remove a member holding
// target. Owners manage everyone, everyone else needs a strictly higher role.
func CanManageRole(actor, target models.OrganizationRole) bool {
	if actor == models.RoleOwner {
		return true
	}
	return RolePriority(actor) > RolePriority(target)
}

// AssignableRoles lists the roles actor may grant, lowest first.
func AssignableRoles(actor models.OrganizationRole) []models.OrganizationRole {
	p := RolePriority(actor)
	roles := make([]models.OrganizationRole, 0, 4)
	for _, r := range []models.OrganizationRole{models.RoleMember, models.RoleLead, models.RoleHead, models.RoleOwner} {
		if rolePriority[r] < p {
			roles = append(roles, r)
		}
	}
	return roles
}

// CanAssignManager reports whether actor may make someone report to a manager
// holding managerRole. Nobody can attach reports above their own level.
func CanAssignManager(actor, managerRole models.OrganizationRole) bool {
	if actor == models.RoleOwner {
		return true
	}
	return RolePriority(actor) >= RolePriority(managerRole)
}
