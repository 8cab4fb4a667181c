package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crewbase-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "whsec_test"

func setupWebhookTest(t *testing.T) (*fiber.App, *gorm.DB, *domain.Org) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Org{}, &domain.BillingEvent{}))

	org := domain.Org{OrgName: "Acme", LicenseTotal: 5, IsActive: true}
	require.NoError(t, db.Create(&org).Error)

	wh := &WebhookHandler{DB: db, WebhookSecret: testSecret}
	app := fiber.New()
	app.Post("/api/v1/billing/webhook", wh.HandleWebhook)
	return app, db, &org
}

func signPayload(payload string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(ts + "." + payload))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func subscriptionPayload(eventID, orgID string, seats int) string {
	return fmt.Sprintf(`{"id":%q,"type":"subscription.updated","data":{"object":{"org_id":%q,"seats":%d}}}`,
		eventID, orgID, seats)
}

func deliver(t *testing.T, app *fiber.App, payload, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/billing/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Billing-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestWebhook_UpdatesSeatTotal(t *testing.T) {
	app, db, org := setupWebhookTest(t)

	payload := subscriptionPayload("evt_1", org.OrgID.String(), 12)
	status := deliver(t, app, payload, signPayload(payload, time.Now()))
	assert.Equal(t, 200, status)

	var updated domain.Org
	require.NoError(t, db.Where("org_id = ?", org.OrgID).First(&updated).Error)
	assert.Equal(t, 12, updated.LicenseTotal)

	var event domain.BillingEvent
	require.NoError(t, db.Where("event_id = ?", "evt_1").First(&event).Error)
	assert.Equal(t, "subscription.updated", event.EventType)
}

func TestWebhook_ReplayedEventIsIdempotent(t *testing.T) {
	app, db, org := setupWebhookTest(t)

	payload := subscriptionPayload("evt_1", org.OrgID.String(), 12)
	require.Equal(t, 200, deliver(t, app, payload, signPayload(payload, time.Now())))

	// Same event id with a different seat count must not re-apply
	replay := subscriptionPayload("evt_1", org.OrgID.String(), 99)
	require.Equal(t, 200, deliver(t, app, replay, signPayload(replay, time.Now())))

	var updated domain.Org
	require.NoError(t, db.Where("org_id = ?", org.OrgID).First(&updated).Error)
	assert.Equal(t, 12, updated.LicenseTotal)

	var count int64
	db.Model(&domain.BillingEvent{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	app, db, org := setupWebhookTest(t)
	payload := subscriptionPayload("evt_1", org.OrgID.String(), 12)

	assert.Equal(t, 400, deliver(t, app, payload, ""))
	assert.Equal(t, 400, deliver(t, app, payload, "t=123,v1=deadbeef"))

	// Stale timestamp outside the 5 minute tolerance
	assert.Equal(t, 400, deliver(t, app, payload, signPayload(payload, time.Now().Add(-10*time.Minute))))

	// Signature over a different payload
	other := subscriptionPayload("evt_2", org.OrgID.String(), 99)
	assert.Equal(t, 400, deliver(t, app, payload, signPayload(other, time.Now())))

	var count int64
	db.Model(&domain.BillingEvent{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestWebhook_UnknownOrgStill200(t *testing.T) {
	app, db, _ := setupWebhookTest(t)
	payload := subscriptionPayload("evt_1", "3f1c7c0a-0000-0000-0000-000000000000", 12)

	// 200 so the provider does not retry forever; nothing recorded
	assert.Equal(t, 200, deliver(t, app, payload, signPayload(payload, time.Now())))
	var count int64
	db.Model(&domain.BillingEvent{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestWebhook_IgnoresOtherEventTypes(t *testing.T) {
	app, db, org := setupWebhookTest(t)
	payload := fmt.Sprintf(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"org_id":%q,"seats":50}}}`, org.OrgID.String())

	assert.Equal(t, 200, deliver(t, app, payload, signPayload(payload, time.Now())))

	var updated domain.Org
	require.NoError(t, db.Where("org_id = ?", org.OrgID).First(&updated).Error)
	assert.Equal(t, 5, updated.LicenseTotal)
}
