package policies

import "errors"

var (
	ErrUsersCannotModifyTheirOwnRoles  = errors.New("Users cannot modify their own roles")
	ErrCannotModifyUsersOutsideYourOrg = errors.New("Cannot modify users outside your organization")
	ErrTargetUserNotFound              = errors.New("Target user not found")
	ErrOnlySuperAdminsCanManageAdmins  = errors.New("Only super admins can modify other admins")
	ErrYouCannotRemoveYourself         = errors.New("You cannot remove yourself from the organization")
)
