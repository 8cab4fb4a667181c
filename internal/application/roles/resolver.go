package roles

import (
	"errors"
	"strings"

	"crewbase-backend/internal/pkg/constants"
)

var (
	ErrInvalidRoles  = errors.New("Invalid role selection")
	ErrForbiddenRole = errors.New("The super_admin role cannot be granted through an invitation")
)

// Normalize validates and canonicalizes a requested role set for an
// invitation or registration. member is implicit and always included; any
// subset of {manager, admin} may be added on top. super_admin is platform
// level and assigned out of band, never through this path.
//
// An empty request is valid and yields {member}.
func Normalize(requested []string) ([]string, error) {
	hasManager, hasAdmin := false, false
	for _, r := range requested {
		switch strings.TrimSpace(r) {
		case constants.Member, "":
			// implicit
		case constants.Manager:
			hasManager = true
		case constants.Admin:
			hasAdmin = true
		case constants.SuperAdmin:
			return nil, ErrForbiddenRole
		default:
			return nil, ErrInvalidRoles
		}
	}
	out := []string{constants.Member}
	if hasManager {
		out = append(out, constants.Manager)
	}
	if hasAdmin {
		out = append(out, constants.Admin)
	}
	return out, nil
}
