package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"crewbase-backend/internal/application/auth"
	"crewbase-backend/internal/application/tokens"
	"crewbase-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthMiddlewareTest(t *testing.T) (*fiber.App, *tokens.Issuer, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	issuer := &tokens.Issuer{SessionSecret: []byte("test-secret")}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/protected", RequireAuth(issuer, rdb), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": GetClaims(c).UserID()})
	})
	app.Post("/invite", RequireAuth(issuer, rdb), AuthorizePermission(constants.InviteUser), func(c *fiber.Ctx) error {
		return c.SendStatus(200)
	})
	return app, issuer, rdb
}

func get(t *testing.T, app *fiber.App, method, url, bearer string) int {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	app, issuer, _ := setupAuthMiddlewareTest(t)

	assert.Equal(t, 401, get(t, app, "GET", "/protected", ""))
	assert.Equal(t, 401, get(t, app, "GET", "/protected", "garbage"))

	token, err := issuer.IssueSessionToken("user-1", "org-1", []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, 200, get(t, app, "GET", "/protected", token))
}

func TestRequireAuth_RevokedSession(t *testing.T) {
	app, issuer, rdb := setupAuthMiddlewareTest(t)

	token, err := issuer.IssueSessionToken("user-1", "org-1", []string{"member"})
	require.NoError(t, err)
	claims, err := issuer.ParseSessionToken(token)
	require.NoError(t, err)

	assert.Equal(t, 200, get(t, app, "GET", "/protected", token))
	auth.RevokeSession(context.Background(), rdb, claims.ID, time.Hour)
	assert.Equal(t, 401, get(t, app, "GET", "/protected", token))
}

func TestAuthorizePermission_RoleSet(t *testing.T) {
	app, issuer, _ := setupAuthMiddlewareTest(t)

	memberToken, err := issuer.IssueSessionToken("user-1", "org-1", []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, 403, get(t, app, "POST", "/invite", memberToken))

	managerToken, err := issuer.IssueSessionToken("user-2", "org-1", []string{"member", "manager"})
	require.NoError(t, err)
	assert.Equal(t, 403, get(t, app, "POST", "/invite", managerToken))

	adminToken, err := issuer.IssueSessionToken("user-3", "org-1", []string{"member", "admin"})
	require.NoError(t, err)
	assert.Equal(t, 200, get(t, app, "POST", "/invite", adminToken))
}
