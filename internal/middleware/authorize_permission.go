package middleware

import (
	"crewbase-backend/internal/pkg/constants"
	"crewbase-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizePermission checks the session role set against PermissionRoles.
// Unconfigured permission -> 500; no allowed role -> 403.
func AuthorizePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		allowed, ok := constants.PermissionRoles[permission]
		if !ok || len(allowed) == 0 {
			return response.Error(c, "Permission configuration error", 500, nil)
		}
		if !constants.AllowedAnyRole(permission, claims.Roles) {
			return response.Error(c, "User is Forbidden from performing this action", 403, nil)
		}
		return c.Next()
	}
}
