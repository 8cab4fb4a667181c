package invitations

import (
	"errors"

	invsvc "crewbase-backend/internal/application/invitations"
	"crewbase-backend/internal/application/invitations/policies"
	"crewbase-backend/internal/application/license"
	"crewbase-backend/internal/application/roles"
	"crewbase-backend/internal/domain"
	"crewbase-backend/internal/middleware"
	"crewbase-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Handlers bundles invitation handlers with dependencies. DB is used to
// resolve the acting user's display name for outgoing invite emails.
type Handlers struct {
	Service *invsvc.Service
	DB      *gorm.DB
}

type createBatchBody struct {
	Invitations []invsvc.InviteRow `json:"invitations"`
}

// CreateBatch POST /api/v1/organizations/:org_id/invitations
func (h *Handlers) CreateBatch(c *fiber.Ctx) error {
	orgID, ok := h.orgFromPath(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	claims := middleware.GetClaims(c)
	actorID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return response.Error(c, "Authorization error", 500, nil)
	}

	var body createBatchBody
	if err := c.BodyParser(&body); err != nil || len(body.Invitations) == 0 {
		return response.Error(c, "invitations array is required", 400, nil)
	}

	var actor domain.User
	if err := h.DB.Where("user_id = ?", actorID).First(&actor).Error; err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Service.CreateInvitations(c.Context(), invsvc.CreateBatchInput{
		OrgID:         orgID,
		InvitedBy:     actorID,
		InvitedByName: actor.FirstName + " " + actor.LastName,
		InviterEmail:  actor.Email,
		Rows:          body.Invitations,
	})
	if err != nil {
		var le *license.LicenseExceededError
		switch {
		case errors.As(err, &le):
			return response.Error(c, le.Error(), 409, fiber.Map{"shortfall": le.Shortfall})
		case errors.Is(err, invsvc.ErrOrgNotFound):
			return response.Error(c, err.Error(), 404, nil)
		case errors.Is(err, invsvc.ErrOrgInactive):
			return response.Error(c, err.Error(), 403, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.SuccessCreated(c, "Invitations created", result, nil)
}

// List GET /api/v1/organizations/:org_id/invitations?state=pending
func (h *Handlers) List(c *fiber.Ctx) error {
	orgID, ok := h.orgFromPath(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	invites, err := h.Service.List(c.Context(), orgID, c.Query("state"))
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Invitations retrieved", invites, fiber.Map{"count": len(invites)})
}

// Check GET /api/v1/invitations/:token (public)
func (h *Handlers) Check(c *fiber.Ctx) error {
	summary, err := h.Service.Validate(c.Context(), c.Params("token"))
	if err != nil {
		return tokenError(c, err)
	}
	return response.Success(c, "Invitation is valid", summary, nil)
}

type completeBody struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Complete POST /api/v1/invitations/:token/complete (public)
func (h *Handlers) Complete(c *fiber.Ctx) error {
	var body completeBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "first_name, last_name, and password are required", 400, nil)
	}
	result, err := h.Service.Complete(c.Context(), invsvc.CompleteInput{
		Token:     c.Params("token"),
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Password:  body.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, invsvc.ErrInvalidName), errors.Is(err, invsvc.ErrInvalidPassword):
			return response.Error(c, err.Error(), 400, nil)
		case errors.Is(err, policies.ErrAlreadyMember):
			return response.Error(c, err.Error(), 409, nil)
		}
		return tokenError(c, err)
	}
	return response.Success(c, "Invitation accepted", fiber.Map{
		"session_token": result.SessionToken,
		"user_id":       result.UserID,
		"org_id":        result.OrgID,
		"roles":         result.Roles,
		"landing_route": roles.LandingRoute(result.Roles),
	}, nil)
}

// Resend POST /api/v1/organizations/:org_id/invitations/:invite_id/resend
func (h *Handlers) Resend(c *fiber.Ctx) error {
	orgID, ok := h.orgFromPath(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	inviteID, err := uuid.Parse(c.Params("invite_id"))
	if err != nil {
		return response.Error(c, "Invitation not found", 404, nil)
	}
	claims := middleware.GetClaims(c)
	var actor domain.User
	resentBy := ""
	if err := h.DB.Where("user_id = ?", claims.UserID()).First(&actor).Error; err == nil {
		resentBy = actor.FirstName + " " + actor.LastName
	}

	inv, err := h.Service.Resend(c.Context(), orgID, inviteID, resentBy)
	if err != nil {
		var le *license.LicenseExceededError
		if errors.As(err, &le) {
			return response.Error(c, le.Error(), 409, fiber.Map{"shortfall": le.Shortfall})
		}
		return tokenError(c, err)
	}
	return response.Success(c, "Invitation resent", fiber.Map{
		"invite_id":      inv.InviteID,
		"email":          inv.Email,
		"new_expires_at": inv.ExpiresAt,
	}, nil)
}

// Revoke DELETE /api/v1/organizations/:org_id/invitations/:invite_id
func (h *Handlers) Revoke(c *fiber.Ctx) error {
	orgID, ok := h.orgFromPath(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	inviteID, err := uuid.Parse(c.Params("invite_id"))
	if err != nil {
		return response.Error(c, "Invitation not found", 404, nil)
	}
	if err := h.Service.Revoke(c.Context(), orgID, inviteID); err != nil {
		return tokenError(c, err)
	}
	return response.NoContent(c)
}

// orgFromPath parses :org_id and checks it against the session's org claim.
func (h *Handlers) orgFromPath(c *fiber.Ctx) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(c.Params("org_id"))
	if err != nil {
		return uuid.Nil, false
	}
	claims := middleware.GetClaims(c)
	if claims == nil || claims.OrgID != orgID.String() {
		return uuid.Nil, false
	}
	return orgID, true
}

// tokenError maps invitation lifecycle errors onto HTTP statuses: missing
// tokens are 404, terminal states are 410, and a completed invite is 409.
func tokenError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, invsvc.ErrNotFound):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, invsvc.ErrExpired), errors.Is(err, invsvc.ErrRevoked):
		return response.Error(c, err.Error(), 410, nil)
	case errors.Is(err, invsvc.ErrAlreadyAccepted):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, invsvc.ErrOrgNotFound):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, invsvc.ErrOrgInactive):
		return response.Error(c, err.Error(), 403, nil)
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}
