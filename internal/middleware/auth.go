package middleware

import (
	"context"
	"strings"

	"crewbase-backend/internal/application/auth"
	"crewbase-backend/internal/application/tokens"
	"crewbase-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const claimsLocal = "claims"

// RequireAuth parses the Bearer session token, rejects revoked sessions,
// and attaches the claims for handlers. Returns 401 with the standard
// error format otherwise.
func RequireAuth(issuer *tokens.Issuer, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return response.Unauthorized(c, "Unauthorized")
		}
		claims, err := issuer.ParseSessionToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if auth.IsSessionRevoked(context.Background(), rdb, claims.ID) {
			return response.Unauthorized(c, "Session has been revoked")
		}
		c.Locals(claimsLocal, claims)
		return c.Next()
	}
}

// GetClaims returns the session claims from Locals (nil if unauthenticated).
func GetClaims(c *fiber.Ctx) *tokens.SessionClaims {
	claims, _ := c.Locals(claimsLocal).(*tokens.SessionClaims)
	return claims
}
