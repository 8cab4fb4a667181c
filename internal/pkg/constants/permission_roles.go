package constants

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:     {Member, Manager, Admin, SuperAdmin},
	InviteUser:   {Admin, SuperAdmin},
	RemoveUser:   {Admin, SuperAdmin},
	AssignRole:   {Admin, SuperAdmin},
	UpdateOrg:    {Admin, SuperAdmin},
	ManageAdmins: {SuperAdmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedAnyRole returns true if any role in the set is allowed for the permission.
// Users carry a role set (member plus optional manager/admin flags).
func AllowedAnyRole(permission string, roles []string) bool {
	for _, r := range roles {
		if AllowedRole(permission, r) {
			return true
		}
	}
	return false
}
