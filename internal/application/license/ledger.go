package license

import (
	"context"
	"fmt"
	"time"

	"crewbase-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LicenseExceededError reports how many seats the request fell short by.
type LicenseExceededError struct {
	Shortfall int
}

func (e *LicenseExceededError) Error() string {
	return fmt.Sprintf("License limit exceeded: %d more seat(s) required", e.Shortfall)
}

// Usage is the seat arithmetic for one organization. A pending, unexpired
// invitation reserves a seat exactly like an active member occupies one.
type Usage struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Available int `json:"available"`
}

// Ledger computes seat usage from the member and invitation tables. It holds
// no state of its own, so "releasing" a seat is nothing more than the
// invitation or member leaving the counted states.
type Ledger struct {
	DB *gorm.DB
}

// Usage returns {total, used, available}, read-consistent with the stores at
// call time.
func (l *Ledger) Usage(ctx context.Context, orgID uuid.UUID) (Usage, error) {
	return usage(l.DB.WithContext(ctx), orgID, time.Now(), false)
}

// ReserveSeats verifies that count seats are available, inside the caller's
// transaction, with the Org row locked so concurrent reservations for the
// same organization serialize. The caller must write the invitation rows in
// the same transaction; the check-then-act pair is atomic only together.
func (l *Ledger) ReserveSeats(tx *gorm.DB, orgID uuid.UUID, count int) error {
	u, err := usage(tx, orgID, time.Now(), true)
	if err != nil {
		return err
	}
	if count > u.Available {
		return &LicenseExceededError{Shortfall: count - u.Available}
	}
	return nil
}

func usage(tx *gorm.DB, orgID uuid.UUID, now time.Time, forUpdate bool) (Usage, error) {
	q := tx
	if forUpdate && tx.Dialector.Name() == "postgres" {
		// sqlite (tests) serializes writers on its own and rejects FOR UPDATE.
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var org domain.Org
	if err := q.Where("org_id = ?", orgID).First(&org).Error; err != nil {
		return Usage{}, err
	}

	var members int64
	if err := tx.Model(&domain.User{}).
		Where("org_id = ? AND status = ?", orgID, domain.UserStatusActive).
		Count(&members).Error; err != nil {
		return Usage{}, err
	}

	// Lazy expiry: a pending row past its deadline no longer holds a seat,
	// whether or not a sweep has flipped its state yet.
	var pending int64
	if err := tx.Model(&domain.Invitation{}).
		Where("org_id = ? AND state = ? AND expires_at > ?", orgID, domain.InviteStatePending, now).
		Count(&pending).Error; err != nil {
		return Usage{}, err
	}

	used := int(members + pending)
	return Usage{
		Total:     org.LicenseTotal,
		Used:      used,
		Available: org.LicenseTotal - used,
	}, nil
}
