package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	InviteStatePending  = "pending"
	InviteStateAccepted = "accepted"
	InviteStateRevoked  = "revoked"
	InviteStateExpired  = "expired"
)

// Invitation is the authoritative record of one invite. The token is an
// opaque lookup key, not a credential payload; it is replaced on resend and
// never serialized in API responses or logs.
//
// At most one non-terminal invitation exists per (org_id, email): a repeat
// invite re-stamps the existing row instead of creating a second one.
type Invitation struct {
	InviteID    uuid.UUID                   `gorm:"column:invite_id;type:uuid;primaryKey" json:"invite_id"`
	OrgID       uuid.UUID                   `gorm:"column:org_id;type:uuid;not null;index:idx_invitations_org_email" json:"org_id"`
	Email       string                      `gorm:"column:email;not null;index:idx_invitations_org_email" json:"email"`
	Roles       datatypes.JSONSlice[string] `gorm:"column:roles;not null" json:"roles"`
	InviteToken string                      `gorm:"column:invite_token;not null;uniqueIndex" json:"-"`
	State       string                      `gorm:"column:state;not null;default:'pending'" json:"state"`
	InvitedBy   uuid.UUID                   `gorm:"column:invited_by;type:uuid;not null" json:"invited_by"`
	InvitedAt   time.Time                   `gorm:"column:invited_at;not null" json:"invited_at"`
	ExpiresAt   time.Time                   `gorm:"column:expires_at;not null" json:"expires_at"`
	AcceptedAt  *time.Time                  `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (Invitation) TableName() string {
	return "Invitations"
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.InviteID == uuid.Nil {
		i.InviteID = uuid.New()
	}
	return nil
}

// Lapsed reports whether the invitation no longer holds a seat: terminal
// expiry state, or pending past its deadline (lazy expiry, evaluated at read
// time without a background sweep).
func (i *Invitation) Lapsed(now time.Time) bool {
	if i.State == InviteStateExpired {
		return true
	}
	return i.State == InviteStatePending && !now.Before(i.ExpiresAt)
}
