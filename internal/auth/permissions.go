package auth

import "wrapreel/internal/model"

// Permission names an action a shop member may take.
type Permission string

const (
	PermEditProject   Permission = "project:edit"
	PermDeleteProject Permission = "project:delete"
	PermEditBlueprint Permission = "blueprint:edit"
	PermRender        Permission = "render:run"
	PermExport        Permission = "export:create"
	PermManageStaff   Permission = "staff:manage"
)

// Staff prepare reels; spending render credits and managing the team is
// left to the owner.
var rolePermissions = map[model.UserRole][]Permission{
	model.RoleOwner: {
		PermEditProject, PermDeleteProject, PermEditBlueprint,
		PermRender, PermExport, PermManageStaff,
	},
	model.RoleStaff: {
		PermEditProject, PermEditBlueprint, PermExport,
	},
}

// Permissions lists what role may do. Unknown roles get nothing.
func Permissions(role model.UserRole) []Permission {
	return append([]Permission(nil), rolePermissions[role]...)
}

func Allowed(role model.UserRole, p Permission) bool {
	for _, granted := range rolePermissions[role] {
		if granted == p {
			return true
		}
	}
	return false
}
