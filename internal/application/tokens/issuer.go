package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultInviteTTL is the fixed lifetime of an invite token.
	DefaultInviteTTL = 7 * 24 * time.Hour
	// DefaultSessionTTL is the lifetime of a session credential.
	DefaultSessionTTL = 24 * time.Hour

	// inviteTokenBytes gives 256 bits of entropy, URL-safe encoded.
	inviteTokenBytes = 32
)

var ErrInvalidSession = errors.New("Invalid or expired session")

// Issuer mints opaque invite tokens and signed session credentials. It has no
// side effects beyond randomness and the clock; all state lives in the store.
type Issuer struct {
	SessionSecret []byte
	SessionTTL    time.Duration // defaults to DefaultSessionTTL when zero
	InviteTTL     time.Duration // defaults to DefaultInviteTTL when zero
}

// SessionClaims binds identity, tenant, and role set in a session JWT.
type SessionClaims struct {
	OrgID string   `json:"org_id,omitempty"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *SessionClaims) UserID() string {
	return c.Subject
}

func (i *Issuer) inviteTTL() time.Duration {
	if i.InviteTTL > 0 {
		return i.InviteTTL
	}
	return DefaultInviteTTL
}

func (i *Issuer) sessionTTL() time.Duration {
	if i.SessionTTL > 0 {
		return i.SessionTTL
	}
	return DefaultSessionTTL
}

// IssueInviteToken returns a cryptographically random, URL-safe token and its
// expiry. The token is a lookup key, not a self-describing credential, so
// revocation is immediate and needs no blacklist.
func (i *Issuer) IssueInviteToken() (string, time.Time, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	return base64.RawURLEncoding.EncodeToString(b), time.Now().Add(i.inviteTTL()), nil
}

// IssueSessionToken issues a signed, time-limited credential for userID in
// orgID with the given role set (HS256). The jti is unique per session and is
// what the revocation denylist keys on.
func (i *Issuer) IssueSessionToken(userID, orgID string, roles []string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		OrgID: orgID,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.sessionTTL())),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.SessionSecret)
}

// ParseSessionToken verifies signature and expiry. Any failure maps to
// ErrInvalidSession; callers never see parser internals.
func (i *Issuer) ParseSessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return i.SessionSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
