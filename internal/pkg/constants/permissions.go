package constants

const (
	ViewData     = "VIEW_DATA"
	InviteUser   = "INVITE_USER"
	RemoveUser   = "REMOVE_USER"
	AssignRole   = "ASSIGN_ROLE"
	UpdateOrg    = "UPDATE_ORG"
	ManageAdmins = "MANAGE_ADMINS"
)
