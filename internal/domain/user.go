package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User is a member of an organization. Roles always contains "member";
// manager/admin are additive flags. Only active users count toward the
// organization's used license seats.
type User struct {
	UserID       uuid.UUID                   `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FirstName    string                      `gorm:"column:first_name;not null" json:"first_name"`
	LastName     string                      `gorm:"column:last_name;not null" json:"last_name"`
	Email        string                      `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string                      `gorm:"column:password_hash;not null" json:"-"`
	OrgID        *uuid.UUID                  `gorm:"column:org_id;type:uuid" json:"org_id"`
	Roles        datatypes.JSONSlice[string] `gorm:"column:roles;not null" json:"roles"`
	Status       string                      `gorm:"column:status;not null;default:active" json:"status"`
	LastLoginAt  *time.Time                  `gorm:"column:last_login_at" json:"last_login_at"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "Users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
