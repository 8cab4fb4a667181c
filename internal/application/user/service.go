package user

import (
	"context"

	"crewbase-backend/internal/application/auth"
	"crewbase-backend/internal/application/roles"
	"crewbase-backend/internal/application/user/policies"
	"crewbase-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service covers member administration inside an organization. Creation
// happens exclusively through invitation completion; this service only
// changes existing members.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// UpdateMemberRolesInput describes a role-set change.
type UpdateMemberRolesInput struct {
	ActorUserID  uuid.UUID
	ActorRoles   []string
	OrgID        uuid.UUID
	TargetUserID uuid.UUID
	Roles        []string
}

// UpdateMemberRoles normalizes the requested set (member stays mandatory,
// super_admin is not grantable here), applies governance, saves, and revokes
// the target's live sessions so stale role claims die immediately.
func (s *Service) UpdateMemberRoles(ctx context.Context, in UpdateMemberRolesInput) (*domain.User, error) {
	normalized, err := roles.Normalize(in.Roles)
	if err != nil {
		return nil, err
	}
	target, err := policies.ValidateMemberChange(s.DB.WithContext(ctx), policies.ValidateMemberChangeParams{
		ActorUserID:  in.ActorUserID,
		ActorRoles:   in.ActorRoles,
		TargetUserID: in.TargetUserID,
		OrgID:        in.OrgID,
	})
	if err != nil {
		return nil, err
	}
	target.Roles = datatypes.NewJSONSlice(normalized)
	if err := s.DB.WithContext(ctx).Save(target).Error; err != nil {
		return nil, err
	}
	auth.RevokeUserSessions(ctx, s.Rdb, target.UserID.String())
	return target, nil
}

// DeactivateMemberInput describes a member removal.
type DeactivateMemberInput struct {
	ActorUserID  uuid.UUID
	ActorRoles   []string
	OrgID        uuid.UUID
	TargetUserID uuid.UUID
}

// DeactivateMember sets the member inactive, which releases their license
// seat, and revokes their sessions. The row is kept so a later re-invite can
// reactivate the account.
func (s *Service) DeactivateMember(ctx context.Context, in DeactivateMemberInput) error {
	if in.ActorUserID == in.TargetUserID {
		return policies.ErrYouCannotRemoveYourself
	}
	target, err := policies.ValidateMemberChange(s.DB.WithContext(ctx), policies.ValidateMemberChangeParams{
		ActorUserID:  in.ActorUserID,
		ActorRoles:   in.ActorRoles,
		TargetUserID: in.TargetUserID,
		OrgID:        in.OrgID,
	})
	if err != nil {
		return err
	}
	target.Status = domain.UserStatusInactive
	if err := s.DB.WithContext(ctx).Save(target).Error; err != nil {
		return err
	}
	auth.RevokeUserSessions(ctx, s.Rdb, target.UserID.String())
	return nil
}
