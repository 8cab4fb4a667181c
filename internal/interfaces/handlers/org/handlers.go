package org

import (
	"errors"

	"crewbase-backend/internal/application/license"
	orgsvc "crewbase-backend/internal/application/org"
	"crewbase-backend/internal/middleware"
	"crewbase-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles org handlers with dependencies.
type Handlers struct {
	Service *orgsvc.Service
	Ledger  *license.Ledger
}

// View GET /api/v1/organizations/:org_id
func (h *Handlers) View(c *fiber.Ctx) error {
	orgID, ok := orgFromPath(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	view, err := h.Service.GetOrg(c.Context(), orgID)
	if err != nil {
		if errors.Is(err, orgsvc.ErrOrgNotFound) {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Organization retrieved", view, nil)
}

// License GET /api/v1/organizations/:org_id/license
func (h *Handlers) License(c *fiber.Ctx) error {
	orgID, ok := orgFromPath(c)
	if !ok {
		return response.Error(c, "Cannot act outside your organization", 403, nil)
	}
	usage, err := h.Ledger.Usage(c.Context(), orgID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "License usage retrieved", usage, nil)
}

func orgFromPath(c *fiber.Ctx) (uuid.UUID, bool) {
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
