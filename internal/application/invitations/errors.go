package invitations

import "errors"

// Token lifecycle errors are terminal for the presented token; callers
// redirect the user to request a new invite or sign in.
var (
	ErrNotFound        = errors.New("Invitation not found")
	ErrExpired         = errors.New("Invitation has expired")
	ErrRevoked         = errors.New("Invitation has been revoked")
	ErrAlreadyAccepted = errors.New("Invitation has already been accepted")

	ErrOrgNotFound = errors.New("Organization not found")
	ErrOrgInactive = errors.New("Organization is not active")

	ErrInvalidName     = errors.New("First and last name are required (letters, spaces, hyphens, and apostrophes only)")
	ErrInvalidPassword = errors.New("Password must be at least 8 characters with a letter, a number, and a special character")
)
