package org

import (
	"context"
	"errors"

	"crewbase-backend/internal/application/license"
	"crewbase-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrOrgNotFound = errors.New("Org not found")

// Service provides organization views for the admin surface.
type Service struct {
	DB     *gorm.DB
	Ledger *license.Ledger
}

// MemberRow is a member as shown on the org page.
type MemberRow struct {
	UserID    uuid.UUID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Status    string    `json:"status"`
}

// OrgView is the org page payload: identity, members, and seat usage.
type OrgView struct {
	OrgID    uuid.UUID     `json:"org_id"`
	OrgName  string        `json:"org_name"`
	IsActive bool          `json:"is_active"`
	Members  []MemberRow   `json:"members"`
	License  license.Usage `json:"license"`
}

// GetOrg returns the organization with its member list and license usage.
func (s *Service) GetOrg(ctx context.Context, orgID uuid.UUID) (*OrgView, error) {
	var o domain.Org
	if err := s.DB.WithContext(ctx).Where("org_id = ?", orgID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	var users []domain.User
	if err := s.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	members := make([]MemberRow, 0, len(users))
	for _, u := range users {
		members = append(members, MemberRow{
			UserID:    u.UserID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Roles:     u.Roles,
			Status:    u.Status,
		})
	}

	usage, err := s.Ledger.Usage(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &OrgView{
		OrgID:    o.OrgID,
		OrgName:  o.OrgName,
		IsActive: o.IsActive,
		Members:  members,
		License:  usage,
	}, nil
}
