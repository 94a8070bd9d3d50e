package auth

// Permission is a named capability.
type Permission string

// Permission constants.
const (
	PermFleetRead      Permission = "fleet:read"
	PermSelectionWrite Permission = "selection:write"
	PermCommentWrite   Permission = "comment:write"
	PermActionExecute  Permission = "action:execute"
	PermUserManage     Permission = "user:manage"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermFleetRead,
		PermSelectionWrite,
	},
	RoleOperator: {
		PermFleetRead,
		PermSelectionWrite,
		PermCommentWrite,
		PermActionExecute,
	},
	RoleAdmin: {
		PermFleetRead,
		PermSelectionWrite,
		PermCommentWrite,
		PermActionExecute,
		PermUserManage,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the permissions granted to role, or
// nil for an unknown role.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
