package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// Sender delivers transactional invitation emails. Delivery is best-effort
// and non-transactional: a failure never rolls back the invitation, which
// stays independently retryable via resend. Nil = no-op.
type Sender interface {
	SendInvite(ctx context.Context, toEmail, inviteLink, orgName string, roles []string, invitedByName string) error
}

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient sends emails via the Brevo (Sendinblue) API.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@crewbase.io"
}

func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Crewbase"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendInvite sends the invitation email with the accept link.
func (c *BrevoClient) SendInvite(ctx context.Context, toEmail, inviteLink, orgName string, roles []string, invitedByName string) error {
	if c.APIKey == "" {
		return nil
	}
	subject := fmt.Sprintf("You have been invited to join %s on Crewbase", orgName)
	content := invitationContent(inviteLink, orgName, roles, invitedByName)
	return c.send(ctx, toEmail, subject, EmailLayout(content))
}

func invitationContent(inviteLink, orgName string, roles []string, invitedByName string) string {
	if invitedByName == "" {
		invitedByName = "A teammate"
	}
	return fmt.Sprintf(`
    <h1>Join %s on Crewbase</h1>
    <p>%s has invited you to join <strong>%s</strong> as a <strong>%s</strong>.</p>
    <p>Click the button below to accept the invitation and set up your account:</p>
    <center>
      <a href="%s" class="cb-button">Accept Invitation</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      This invitation link expires in 7 days. If you were not expecting it, you can safely ignore this email.
    </p>
    <p>— The Crewbase Team</p>
`, EscapeHTML(orgName), EscapeHTML(invitedByName), EscapeHTML(orgName), EscapeHTML(strings.Join(roles, ", ")), inviteLink)
}
