package policies

import (
	"errors"

	"crewbase-backend/internal/domain"
	"crewbase-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ValidateMemberChangeParams describes an actor acting on a target member.
type ValidateMemberChangeParams struct {
	ActorUserID  uuid.UUID
	ActorRoles   []string
	TargetUserID uuid.UUID
	OrgID        uuid.UUID
}

// ValidateMemberChange guards role updates and deactivation: no self
// modification, org-scoped targets only, and admins may not touch other
// admins unless the actor is a super admin. Returns the target on success.
func ValidateMemberChange(db *gorm.DB, p ValidateMemberChangeParams) (*domain.User, error) {
	if p.ActorUserID == p.TargetUserID {
		return nil, ErrUsersCannotModifyTheirOwnRoles
	}
	var target domain.User
	if err := db.Where("user_id = ?", p.TargetUserID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, err
	}
	if target.OrgID == nil || *target.OrgID != p.OrgID {
		return nil, ErrCannotModifyUsersOutsideYourOrg
	}
	targetIsAdmin := constants.HasRole(target.Roles, constants.Admin) ||
		constants.HasRole(target.Roles, constants.SuperAdmin)
	if targetIsAdmin && !constants.HasRole(p.ActorRoles, constants.SuperAdmin) {
		return nil, ErrOnlySuperAdminsCanManageAdmins
	}
	return &target, nil
}
