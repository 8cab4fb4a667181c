package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crewbase-backend/internal/application/emails"
	"crewbase-backend/internal/application/invitations/policies"
	"crewbase-backend/internal/application/license"
	"crewbase-backend/internal/application/roles"
	"crewbase-backend/internal/application/tokens"
	"crewbase-backend/internal/domain"
	"crewbase-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service orchestrates the invitation lifecycle: batch creation against the
// license ledger, token validation, completion (member provisioning + session
// issuance), resend, and revocation.
type Service struct {
	DB            *gorm.DB
	Tokens        *tokens.Issuer
	Ledger        *license.Ledger
	Mailer        emails.Sender // nil = no email dispatch
	InviteBaseURL string
}

// InviteRow is one requested invite in a batch.
type InviteRow struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// RejectedRow reports why a single batch entry was not created.
type RejectedRow struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// BatchResult is the per-row outcome of a create call.
type BatchResult struct {
	Created  []domain.Invitation `json:"created"`
	Rejected []RejectedRow       `json:"rejected"`
}

// CreateBatchInput identifies the actor and the requested rows.
type CreateBatchInput struct {
	OrgID         uuid.UUID
	InvitedBy     uuid.UUID
	InvitedByName string
	InviterEmail  string
	Rows          []InviteRow
}

// CreateInvitations creates a batch of invitations. Row validation is
// per-row (a bad email or role set rejects only that row); the license check
// is all-or-nothing against the remaining valid rows: on shortfall nothing
// is written and the caller receives license.LicenseExceededError.
func (s *Service) CreateInvitations(ctx context.Context, in CreateBatchInput) (*BatchResult, error) {
	res := &BatchResult{Created: []domain.Invitation{}, Rejected: []RejectedRow{}}

	type validRow struct {
		email string
		roles []string
	}
	var orgName string

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := lockOrg(tx, in.OrgID)
		if err != nil {
			return err
		}
		if !org.IsActive {
			return ErrOrgInactive
		}
		orgName = org.OrgName

		now := time.Now()
		seen := make(map[string]bool)
		var valid []validRow
		for _, row := range in.Rows {
			email := strings.TrimSpace(strings.ToLower(row.Email))
			if seen[email] {
				res.Rejected = append(res.Rejected, RejectedRow{Email: row.Email, Reason: "Duplicate email in request"})
				continue
			}
			normalized, err := roles.Normalize(row.Roles)
			if err != nil {
				res.Rejected = append(res.Rejected, RejectedRow{Email: row.Email, Reason: err.Error()})
				continue
			}
			if err := policies.ValidateInviteCreation(tx, in.OrgID, email, in.InviterEmail, now); err != nil {
				res.Rejected = append(res.Rejected, RejectedRow{Email: row.Email, Reason: err.Error()})
				continue
			}
			seen[email] = true
			valid = append(valid, validRow{email: email, roles: normalized})
		}

		if len(valid) == 0 {
			return nil
		}

		if err := s.Ledger.ReserveSeats(tx, in.OrgID, len(valid)); err != nil {
			return err
		}

		for _, v := range valid {
			token, expiresAt, err := s.Tokens.IssueInviteToken()
			if err != nil {
				return err
			}
			inv := domain.Invitation{
				OrgID:       in.OrgID,
				Email:       v.email,
				Roles:       datatypes.NewJSONSlice(v.roles),
				InviteToken: token,
				State:       domain.InviteStatePending,
				InvitedBy:   in.InvitedBy,
				InvitedAt:   now,
				ExpiresAt:   expiresAt,
			}
			if err := tx.Create(&inv).Error; err != nil {
				return err
			}
			res.Created = append(res.Created, inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range res.Created {
		s.dispatchInvite(&res.Created[i], orgName, in.InvitedByName)
	}
	return res, nil
}

// Summary is the read-only view rendered on the acceptance page.
type Summary struct {
	OrgID     uuid.UUID `json:"org_id"`
	OrgName   string    `json:"org_name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Validate looks up a token without consuming it. Expiry is evaluated
// lazily: a pending invitation past its deadline reads as expired whether or
// not the sweep has run.
func (s *Service) Validate(ctx context.Context, token string) (*Summary, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	var inv domain.Invitation
	if err := s.DB.WithContext(ctx).Where("invite_token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.checkPending(ctx, &inv, time.Now()); err != nil {
		return nil, err
	}

	var org domain.Org
	orgName := ""
	if err := s.DB.WithContext(ctx).Where("org_id = ?", inv.OrgID).First(&org).Error; err == nil {
		orgName = org.OrgName
	}

	return &Summary{
		OrgID:     inv.OrgID,
		OrgName:   orgName,
		Email:     inv.Email,
		Roles:     inv.Roles,
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

// CompleteInput carries the registration form for an accepted invite.
type CompleteInput struct {
	Token     string
	FirstName string
	LastName  string
	Password  string
}

// CompleteResult returns the signed-in session for the new member.
type CompleteResult struct {
	SessionToken string    `json:"session_token"`
	UserID       uuid.UUID `json:"user_id"`
	OrgID        uuid.UUID `json:"org_id"`
	Roles        []string  `json:"roles"`
}

// Complete consumes a token exactly once: the pending→accepted transition is
// a conditional update, so of two racing submissions only the first commits
// and the second observes ErrAlreadyAccepted. The member is created (or an
// inactive member of the org reactivated) in the same transaction, so the seat
// converts from reserved-by-invite to used-by-member without a double count.
func (s *Service) Complete(ctx context.Context, in CompleteInput) (*CompleteResult, error) {
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if !validation.IsValidName(firstName) || !validation.IsValidName(lastName) {
		return nil, ErrInvalidName
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	var (
		userID  uuid.UUID
		orgID   uuid.UUID
		roleSet []string
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv domain.Invitation
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("invite_token = ?", in.Token).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := time.Now()
		switch inv.State {
		case domain.InviteStateAccepted:
			return ErrAlreadyAccepted
		case domain.InviteStateRevoked:
			return ErrRevoked
		case domain.InviteStateExpired:
			return ErrExpired
		}
		if inv.Lapsed(now) {
			// mark terminally expired while we hold the row
			tx.Model(&domain.Invitation{}).
				Where("invite_id = ? AND state = ?", inv.InviteID, domain.InviteStatePending).
				Update("state", domain.InviteStateExpired)
			return ErrExpired
		}

		// Single-use guard: only one committer flips pending→accepted.
		result := tx.Model(&domain.Invitation{}).
			Where("invite_id = ? AND state = ?", inv.InviteID, domain.InviteStatePending).
			Updates(map[string]interface{}{
				"state":       domain.InviteStateAccepted,
				"accepted_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyAccepted
		}

		orgID = inv.OrgID
		roleSet = inv.Roles

		var user domain.User
		err := tx.Where("email = ?", inv.Email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = domain.User{
				FirstName:    firstName,
				LastName:     lastName,
				Email:        inv.Email,
				PasswordHash: string(hash),
				OrgID:        &inv.OrgID,
				Roles:        inv.Roles,
				Status:       domain.UserStatusActive,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case user.OrgID != nil && *user.OrgID == inv.OrgID && user.Status == domain.UserStatusInactive:
			user.FirstName = firstName
			user.LastName = lastName
			user.PasswordHash = string(hash)
			user.Roles = inv.Roles
			user.Status = domain.UserStatusActive
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
		default:
			return policies.ErrAlreadyMember
		}

		userID = user.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessionToken, err := s.Tokens.IssueSessionToken(userID.String(), orgID.String(), roleSet)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{
		SessionToken: sessionToken,
		UserID:       userID,
		OrgID:        orgID,
		Roles:        roleSet,
	}, nil
}

// Resend re-stamps the existing logical invitation: same row, same
// invited_at audit trail, fresh token and deadline. The previous token stops
// resolving the moment the new one is written. An invitation that already
// lapsed must pass the license check again, since its seat was released.
func (s *Service) Resend(ctx context.Context, orgID, inviteID uuid.UUID, resentByName string) (*domain.Invitation, error) {
	var inv domain.Invitation
	var orgName string

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := lockOrg(tx, orgID)
		if err != nil {
			return err
		}
		orgName = org.OrgName

		if err := tx.Where("invite_id = ? AND org_id = ?", inviteID, orgID).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		switch inv.State {
		case domain.InviteStateAccepted:
			return ErrAlreadyAccepted
		case domain.InviteStateRevoked:
			return ErrRevoked
		}

		now := time.Now()
		if inv.Lapsed(now) {
			if err := s.Ledger.ReserveSeats(tx, orgID, 1); err != nil {
				return err
			}
		}

		token, expiresAt, err := s.Tokens.IssueInviteToken()
		if err != nil {
			return err
		}
		inv.InviteToken = token
		inv.State = domain.InviteStatePending
		inv.ExpiresAt = expiresAt
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}

	s.dispatchInvite(&inv, orgName, resentByName)
	return &inv, nil
}

// Revoke transitions a pending (or lapsed) invitation to revoked, freeing
// its seat. Revoking twice is a no-op, not an error.
func (s *Service) Revoke(ctx context.Context, orgID, inviteID uuid.UUID) error {
	var inv domain.Invitation
	if err := s.DB.WithContext(ctx).Where("invite_id = ? AND org_id = ?", inviteID, orgID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	switch inv.State {
	case domain.InviteStateAccepted:
		return ErrAlreadyAccepted
	case domain.InviteStateRevoked:
		return nil
	}

	result := s.DB.WithContext(ctx).Model(&domain.Invitation{}).
		Where("invite_id = ? AND state IN ?", inviteID, []string{domain.InviteStatePending, domain.InviteStateExpired}).
		Update("state", domain.InviteStateRevoked)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// lost a race; re-read to report accurately
		if err := s.DB.WithContext(ctx).Where("invite_id = ?", inviteID).First(&inv).Error; err == nil &&
			inv.State == domain.InviteStateAccepted {
			return ErrAlreadyAccepted
		}
	}
	return nil
}

// List returns an organization's invitations, optionally filtered by state.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, state string) ([]domain.Invitation, error) {
	q := s.DB.WithContext(ctx).Where("org_id = ?", orgID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var invitations []domain.Invitation
	if err := q.Order("invited_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// ReclaimExpired flips pending rows past their deadline to the terminal
// expired state. Lazy expiry keeps the ledger correct without this sweep;
// running it just makes the admin list and the stored states tidy.
func (s *Service) ReclaimExpired(ctx context.Context) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&domain.Invitation{}).
		Where("state = ? AND expires_at <= ?", domain.InviteStatePending, time.Now()).
		Update("state", domain.InviteStateExpired)
	return result.RowsAffected, result.Error
}

func (s *Service) checkPending(ctx context.Context, inv *domain.Invitation, now time.Time) error {
	switch inv.State {
	case domain.InviteStateAccepted:
		return ErrAlreadyAccepted
	case domain.InviteStateRevoked:
		return ErrRevoked
	case domain.InviteStateExpired:
		return ErrExpired
	}
	if inv.Lapsed(now) {
		// best-effort terminal mark; correctness does not depend on it
		s.DB.WithContext(ctx).Model(&domain.Invitation{}).
			Where("invite_id = ? AND state = ?", inv.InviteID, domain.InviteStatePending).
			Update("state", domain.InviteStateExpired)
		return ErrExpired
	}
	return nil
}

// dispatchInvite hands the invite to the email collaborator fire-and-forget.
// Delivery failure is logged and surfaced to admins as "resend available",
// never as a failure of the invite itself. Tokens are not logged.
func (s *Service) dispatchInvite(inv *domain.Invitation, orgName, invitedByName string) {
	if s.Mailer == nil {
		return
	}
	link := fmt.Sprintf("%s/invitations/%s", strings.TrimRight(s.InviteBaseURL, "/"), inv.InviteToken)
	email := inv.Email
	roleSet := []string(inv.Roles)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Mailer.SendInvite(ctx, email, link, orgName, roleSet, invitedByName); err != nil {
			log.Warn().Err(err).Str("email", email).Str("org", orgName).
				Msg("Invite email delivery failed; invitation remains valid, resend available")
		}
	}()
}

// lockOrg loads the Org row, locked FOR UPDATE on postgres so concurrent
// invite batches and resends for the same organization serialize around the
// seat check. sqlite (tests) serializes writers on its own.
func lockOrg(tx *gorm.DB, orgID uuid.UUID) (*domain.Org, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var org domain.Org
	if err := q.Where("org_id = ?", orgID).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	return &org, nil
}
