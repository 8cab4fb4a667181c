package constants

const (
	SuperAdmin = "super_admin"
	Admin      = "admin"
	Manager    = "manager"
	Member     = "member"
)

// ValidRoles is the set of allowed role values (must match enum_Users_roles).
var ValidRoles = []string{Member, Manager, Admin, SuperAdmin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole reports whether the role set contains the given role.
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
