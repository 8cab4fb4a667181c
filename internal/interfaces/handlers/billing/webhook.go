package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crewbase-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookHandler receives seat-count changes from the billing provider.
type WebhookHandler struct {
	DB            *gorm.DB
	WebhookSecret string
}

type billingEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type subscriptionObject struct {
	OrgID string `json:"org_id"`
	Seats int    `json:"seats"`
}

// HandleWebhook POST /api/v1/billing/webhook: raw body, signature
// verification, then process. Domain errors return 200 so the provider
// does not retry a permanently failing event.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Billing-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Billing webhook received empty body (ensure no global body parser consumes the webhook body)")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	if err := verifyWebhookSignature(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Billing webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event billingEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("Billing webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type == "subscription.updated" {
		var sub subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return c.Status(200).SendString("ok")
		}
		if err := wh.handleSubscriptionUpdated(sub, event.ID, event.Type, rawBody); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("Billing webhook processing failed")
			return c.Status(200).SendString("ok")
		}
	}

	return c.Status(200).SendString("ok")
}

// handleSubscriptionUpdated sets the org's seat total. Lowering below
// current usage is allowed; the org goes over-subscribed and new invites
// fail until usage drops.
func (wh *WebhookHandler) handleSubscriptionUpdated(sub subscriptionObject, eventID, eventType string, rawBody []byte) error {
	if sub.OrgID == "" || sub.Seats <= 0 {
		return nil
	}
	orgID, err := uuid.Parse(sub.OrgID)
	if err != nil {
		return nil
	}

	return wh.DB.Transaction(func(tx *gorm.DB) error {
		// Idempotency: one row per provider event
		var existing domain.BillingEvent
		if err := tx.Where("event_id = ?", eventID).First(&existing).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		record := domain.BillingEvent{
			EventID:   eventID,
			EventType: eventType,
			OrgID:     orgID,
			Seats:     sub.Seats,
			Payload:   datatypes.JSON(rawBody),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		res := tx.Model(&domain.Org{}).
			Where("org_id = ?", orgID).
			Update("license_total", sub.Seats)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("Org not found")
		}
		return nil
	})
}

// verifyWebhookSignature checks the t=<unix>,v1=<hmac-sha256-hex> header
// signed over "<timestamp>.<payload>" with a 5 minute tolerance.
func verifyWebhookSignature(payload []byte, sigHeader, secret string) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string

	parts := strings.Split(sigHeader, ",")
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedSig)) {
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return errors.New("invalid timestamp")
			}
			diff := time.Now().Unix() - ts
			if diff < 0 {
				diff = -diff
			}
			if diff > 300 {
				return errors.New("timestamp too old")
			}
			return nil
		}
	}

	return errors.New("signature mismatch")
}
