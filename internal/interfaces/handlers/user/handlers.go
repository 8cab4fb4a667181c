package user

import (
	"errors"

	rolessvc "crewbase-backend/internal/application/roles"
	usersvc "crewbase-backend/internal/application/user"
	"crewbase-backend/internal/application/user/policies"
	"crewbase-backend/internal/middleware"
	"crewbase-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles member administration handlers with dependencies.
type Handlers struct {
	Service *usersvc.Service
}

type updateRolesBody struct {
	Roles []string `json:"roles"`
}

// UpdateRoles PATCH /api/v1/organizations/:org_id/members/:user_id/roles
func (h *Handlers) UpdateRoles(c *fiber.Ctx) error {
	orgID, actorID, targetID, ok := memberParams(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	var body updateRolesBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "roles array is required", 400, nil)
	}
	claims := middleware.GetClaims(c)
	target, err := h.Service.UpdateMemberRoles(c.Context(), usersvc.UpdateMemberRolesInput{
		ActorUserID:  actorID,
		ActorRoles:   claims.Roles,
		OrgID:        orgID,
		TargetUserID: targetID,
		Roles:        body.Roles,
	})
	if err != nil {
		return memberError(c, err)
	}
	return response.Success(c, "Member roles updated", fiber.Map{
		"user_id": target.UserID,
		"roles":   target.Roles,
	}, nil)
}

// Deactivate DELETE /api/v1/organizations/:org_id/members/:user_id
func (h *Handlers) Deactivate(c *fiber.Ctx) error {
	orgID, actorID, targetID, ok := memberParams(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	claims := middleware.GetClaims(c)
	if err := h.Service.DeactivateMember(c.Context(), usersvc.DeactivateMemberInput{
		ActorUserID:  actorID,
		ActorRoles:   claims.Roles,
		OrgID:        orgID,
		TargetUserID: targetID,
	}); err != nil {
		return memberError(c, err)
	}
	return response.NoContent(c)
}

func memberParams(c *fiber.Ctx) (orgID, actorID, targetID uuid.UUID, ok bool) {
	orgID, err := uuid.Parse(c.Params("org_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	claims := middleware.GetClaims(c)
	if claims == nil || claims.OrgID != orgID.String() {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	actorID, err = uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	targetID, err = uuid.Parse(c.Params("user_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return orgID, actorID, targetID, true
}

func memberError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, rolessvc.ErrInvalidRoles), errors.Is(err, rolessvc.ErrForbiddenRole):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, policies.ErrTargetUserNotFound):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, policies.ErrUsersCannotModifyTheirOwnRoles),
		errors.Is(err, policies.ErrYouCannotRemoveYourself),
		errors.Is(err, policies.ErrCannotModifyUsersOutsideYourOrg),
		errors.Is(err, policies.ErrOnlySuperAdminsCanManageAdmins):
		return response.Error(c, err.Error(), 403, nil)
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}
