package auth

import (
	"errors"

	authsvc "crewbase-backend/internal/application/auth"
	"crewbase-backend/internal/middleware"
	"crewbase-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles auth handlers with dependencies.
type Handlers struct {
	Service *authsvc.Service
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var body authsvc.LoginInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "email and password are required", 400, nil)
	}
	result, err := h.Service.Login(c.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), 400, nil)
		case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
			return response.Unauthorized(c, err.Error())
		case errors.Is(err, authsvc.ErrAccountInactive):
			return response.Error(c, err.Error(), 403, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Logged in successfully", result, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := h.Service.Me(c.Context(), middleware.GetClaims(c))
	if err != nil {
		if errors.Is(err, authsvc.ErrNotAuthenticated) {
			return response.Unauthorized(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "User retrieved", user, nil)
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	h.Service.Logout(c.Context(), middleware.GetClaims(c))
	return response.Success(c, "Logged out successfully", fiber.Map{"success": true}, nil)
}
