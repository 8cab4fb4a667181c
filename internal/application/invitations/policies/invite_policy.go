package policies

import (
	"errors"
	"strings"
	"time"

	"crewbase-backend/internal/domain"
	"crewbase-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail   = errors.New("Invalid email format")
	ErrSelfInvite     = errors.New("You cannot invite yourself")
	ErrAlreadyMember  = errors.New("User already belongs to this organization")
	ErrAlreadyInvited = errors.New("A pending invitation already exists for this email")
	ErrEmailInUse     = errors.New("Email is already in use by another account")
)

// ValidateInviteCreation runs the per-row checks for one batch entry. These
// are independent of licensing: a failing row is rejected individually and
// never aborts the batch. Must run inside the same transaction that writes
// the invitation rows so the no-duplicate-pending rule holds under
// concurrent batches.
func ValidateInviteCreation(tx *gorm.DB, orgID uuid.UUID, email, inviterEmail string, now time.Time) error {
	if !validation.IsValidEmail(email) {
		return ErrInvalidEmail
	}
	if email == strings.ToLower(strings.TrimSpace(inviterEmail)) {
		return ErrSelfInvite
	}

	var user domain.User
	if err := tx.Where("email = ?", email).First(&user).Error; err == nil {
		switch {
		case user.OrgID != nil && *user.OrgID == orgID && user.Status == domain.UserStatusActive:
			return ErrAlreadyMember
		case user.OrgID == nil || *user.OrgID != orgID:
			// Emails are globally unique; an account bound elsewhere cannot
			// be re-provisioned here. An inactive member of this org may be
			// re-invited (completion reactivates the account).
			return ErrEmailInUse
		}
	}

	var invite domain.Invitation
	if err := tx.Where("org_id = ? AND email = ? AND state = ? AND expires_at > ?",
		orgID, email, domain.InviteStatePending, now).
		First(&invite).Error; err == nil {
		return ErrAlreadyInvited
	}

	return nil
}
