package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	invsvc "crewbase-backend/internal/application/invitations"
	"crewbase-backend/internal/application/license"
	"crewbase-backend/internal/application/tokens"
	"crewbase-backend/internal/domain"
	"crewbase-backend/internal/middleware"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	org   *domain.Org
	admin *domain.User
	svc   *invsvc.Service
}

func setupHandlersTest(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Org{}, &domain.User{}, &domain.Invitation{}))

	org := domain.Org{OrgName: "Acme", LicenseTotal: 5, IsActive: true}
	require.NoError(t, db.Create(&org).Error)
	admin := domain.User{
		FirstName: "Ada", LastName: "Admin", Email: "ada@acme.test",
		PasswordHash: "x", OrgID: &org.OrgID,
		Roles:  datatypes.NewJSONSlice([]string{"member", "admin"}),
		Status: domain.UserStatusActive,
	}
	require.NoError(t, db.Create(&admin).Error)

	svc := &invsvc.Service{
		DB:            db,
		Tokens:        &tokens.Issuer{SessionSecret: []byte("test-secret")},
		Ledger:        &license.Ledger{DB: db},
		InviteBaseURL: "https://app.crewbase.io",
	}
	h := &Handlers{Service: svc, DB: db}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	// Inject session claims the way RequireAuth would
	withClaims := func(c *fiber.Ctx) error {
		c.Locals("claims", &tokens.SessionClaims{
			OrgID: org.OrgID.String(),
			Roles: []string{"member", "admin"},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: admin.UserID.String(),
				ID:      uuid.NewString(),
			},
		})
		return c.Next()
	}
	app.Post("/api/v1/organizations/:org_id/invitations", withClaims, h.CreateBatch)
	app.Post("/api/v1/organizations/:org_id/invitations/:invite_id/resend", withClaims, h.Resend)
	app.Delete("/api/v1/organizations/:org_id/invitations/:invite_id", withClaims, h.Revoke)
	app.Get("/api/v1/organizations/:org_id/invitations", withClaims, h.List)
	app.Get("/api/v1/invitations/:token", h.Check)
	app.Post("/api/v1/invitations/:token/complete", h.Complete)

	return &testEnv{app: app, db: db, org: &org, admin: &admin, svc: svc}
}

func (env *testEnv) seedInvite(t *testing.T, email string) *domain.Invitation {
	t.Helper()
	res, err := env.svc.CreateInvitations(context.Background(), invsvc.CreateBatchInput{
		OrgID:        env.org.OrgID,
		InvitedBy:    env.admin.UserID,
		InviterEmail: env.admin.Email,
		Rows:         []invsvc.InviteRow{{Email: email}},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	return &res.Created[0]
}

func postJSON(t *testing.T, app *fiber.App, url string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var body bytes.Buffer
	require.NoError(t, json.NewEncoder(&body).Encode(payload))
	req := httptest.NewRequest("POST", url, &body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func TestCreateBatch_Created(t *testing.T) {
	env := setupHandlersTest(t)
	url := fmt.Sprintf("/api/v1/organizations/%s/invitations", env.org.OrgID)

	status, body := postJSON(t, env.app, url, fiber.Map{
		"invitations": []fiber.Map{
			{"email": "one@acme.test", "roles": []string{"manager"}},
			{"email": "bogus"},
		},
	})
	assert.Equal(t, 201, status)

	data := body["data"].(map[string]interface{})
	assert.Len(t, data["created"], 1)
	assert.Len(t, data["rejected"], 1)

	// Tokens never appear in the response body
	raw, _ := json.Marshal(body)
	var inv domain.Invitation
	require.NoError(t, env.db.Where("email = ?", "one@acme.test").First(&inv).Error)
	assert.NotContains(t, string(raw), inv.InviteToken)
}

func TestCreateBatch_LicenseExceeded(t *testing.T) {
	env := setupHandlersTest(t)
	orgID := env.org.OrgID
	for i := 0; i < 4; i++ {
		require.NoError(t, env.db.Create(&domain.User{
			FirstName: "M", LastName: "E", Email: fmt.Sprintf("m%d@acme.test", i),
			PasswordHash: "x", OrgID: &orgID,
			Roles:  datatypes.NewJSONSlice([]string{"member"}),
			Status: domain.UserStatusActive,
		}).Error)
	}

	url := fmt.Sprintf("/api/v1/organizations/%s/invitations", orgID)
	status, body := postJSON(t, env.app, url, fiber.Map{
		"invitations": []fiber.Map{{"email": "n1@acme.test"}},
	})
	assert.Equal(t, 409, status)

	errObj := body["error"].(map[string]interface{})
	details := errObj["details"].(map[string]interface{})
	assert.EqualValues(t, 1, details["shortfall"])

	var count int64
	env.db.Model(&domain.Invitation{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestCreateBatch_WrongOrgForbidden(t *testing.T) {
	env := setupHandlersTest(t)
	url := fmt.Sprintf("/api/v1/organizations/%s/invitations", uuid.New())
	status, _ := postJSON(t, env.app, url, fiber.Map{
		"invitations": []fiber.Map{{"email": "x@acme.test"}},
	})
	assert.Equal(t, 403, status)
}

func TestCheckToken_Statuses(t *testing.T) {
	env := setupHandlersTest(t)
	inv := env.seedInvite(t, "new@acme.test")

	req := httptest.NewRequest("GET", "/api/v1/invitations/"+inv.InviteToken, nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/invitations/no-such-token", nil)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	require.NoError(t, env.db.Model(&domain.Invitation{}).
		Where("invite_id = ?", inv.InviteID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)
	req = httptest.NewRequest("GET", "/api/v1/invitations/"+inv.InviteToken, nil)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 410, resp.StatusCode)
}

func TestComplete_EndToEnd(t *testing.T) {
	env := setupHandlersTest(t)
	inv := env.seedInvite(t, "new@acme.test")

	url := "/api/v1/invitations/" + inv.InviteToken + "/complete"
	status, body := postJSON(t, env.app, url, fiber.Map{
		"first_name": "New", "last_name": "Member", "password": "hunter2!x",
	})
	require.Equal(t, 200, status)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["session_token"])
	assert.Equal(t, "/dashboard", data["landing_route"])

	// Second submission conflicts
	status, _ = postJSON(t, env.app, url, fiber.Map{
		"first_name": "Other", "last_name": "Person", "password": "hunter2!x",
	})
	assert.Equal(t, 409, status)
}

func TestComplete_WeakPassword(t *testing.T) {
	env := setupHandlersTest(t)
	inv := env.seedInvite(t, "new@acme.test")

	status, _ := postJSON(t, env.app, "/api/v1/invitations/"+inv.InviteToken+"/complete", fiber.Map{
		"first_name": "New", "last_name": "Member", "password": "short",
	})
	assert.Equal(t, 400, status)
}

func TestResendAndRevoke(t *testing.T) {
	env := setupHandlersTest(t)
	inv := env.seedInvite(t, "new@acme.test")

	url := fmt.Sprintf("/api/v1/organizations/%s/invitations/%s/resend", env.org.OrgID, inv.InviteID)
	status, body := postJSON(t, env.app, url, fiber.Map{})
	require.Equal(t, 200, status)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["new_expires_at"])

	del := fmt.Sprintf("/api/v1/organizations/%s/invitations/%s", env.org.OrgID, inv.InviteID)
	req := httptest.NewRequest("DELETE", del, nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	var persisted domain.Invitation
	require.NoError(t, env.db.Where("invite_id = ?", inv.InviteID).First(&persisted).Error)
	assert.Equal(t, domain.InviteStateRevoked, persisted.State)
}

func TestList_ReturnsOrgInvitations(t *testing.T) {
	env := setupHandlersTest(t)
	env.seedInvite(t, "a@acme.test")
	env.seedInvite(t, "b@acme.test")

	url := fmt.Sprintf("/api/v1/organizations/%s/invitations?state=pending", env.org.OrgID)
	req := httptest.NewRequest("GET", url, nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded["data"], 2)
}
