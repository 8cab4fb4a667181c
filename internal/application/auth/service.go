package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"crewbase-backend/internal/application/roles"
	"crewbase-backend/internal/application/tokens"
	"crewbase-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service handles login, session issuance, and logout.
type Service struct {
	DB     *gorm.DB
	Rdb    *redis.Client
	Tokens *tokens.Issuer
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the signed session credential and the landing route
// computed from the member's role set.
type LoginResult struct {
	SessionToken string      `json:"session_token"`
	LandingRoute roles.Route `json:"landing_route"`
	User         UserShape   `json:"user"`
}

// UserShape is the member view returned by login and /me.
type UserShape struct {
	UserID    string     `json:"user_id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Roles     []string   `json:"roles"`
	OrgID     *string    `json:"org_id"`
	LastLogin *time.Time `json:"last_login_at"`
}

// Login verifies credentials, stamps last_login_at, and issues a session
// token. Inactive members cannot sign in (their seat has been released).
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))

	var u domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	if u.Status != domain.UserStatusActive {
		return nil, ErrAccountInactive
	}

	now := time.Now()
	s.DB.WithContext(ctx).Model(&domain.User{}).
		Where("user_id = ?", u.UserID).
		Update("last_login_at", now)
	u.LastLoginAt = &now

	orgID := ""
	if u.OrgID != nil {
		orgID = u.OrgID.String()
	}
	token, err := s.Tokens.IssueSessionToken(u.UserID.String(), orgID, u.Roles)
	if err != nil {
		return nil, err
	}
	if claims, err := s.Tokens.ParseSessionToken(token); err == nil {
		TrackSession(ctx, s.Rdb, u.UserID.String(), claims.ID)
	}

	return &LoginResult{
		SessionToken: token,
		LandingRoute: roles.LandingRoute(u.Roles),
		User:         shape(&u),
	}, nil
}

// Me resolves the authenticated member from session claims.
func (s *Service) Me(ctx context.Context, claims *tokens.SessionClaims) (*UserShape, error) {
	if claims == nil || claims.UserID() == "" {
		return nil, ErrNotAuthenticated
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", claims.UserID()).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	out := shape(&u)
	return &out, nil
}

// Logout denylists the presented session token.
func (s *Service) Logout(ctx context.Context, claims *tokens.SessionClaims) {
	if claims == nil {
		return
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	RevokeSession(ctx, s.Rdb, claims.ID, ttl)
}

func shape(u *domain.User) UserShape {
	var orgID *string
	if u.OrgID != nil {
		s := u.OrgID.String()
		orgID = &s
	}
	return UserShape{
		UserID:    u.UserID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Roles:     u.Roles,
		OrgID:     orgID,
		LastLogin: u.LastLoginAt,
	}
}
