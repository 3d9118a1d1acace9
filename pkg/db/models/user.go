package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity. Roles and the pending
// role-change request are stored as JSON arrays so the model works on both
// postgres and the sqlite driver used in tests.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email        string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Name         string    `gorm:"column:name;not null"`
	Phone        *string   `gorm:"column:phone"`
	Verified     bool      `gorm:"column:verified;not null;default:false"`
	Roles        []string  `gorm:"column:roles;serializer:json;not null"`

	ProfileImageURL *string `gorm:"column:profile_image_url"`
	ProfileImageID  *string `gorm:"column:profile_image_id"`

	// Running cart total, maintained atomically alongside cart line changes.
	CartTotal float64 `gorm:"column:cart_total;not null;default:0"`

	VerifyTokenHash      *string    `gorm:"column:verify_token_hash"`
	VerifyTokenExpiresAt *time.Time `gorm:"column:verify_token_expires_at"`

	ResetTokenHash      *string    `gorm:"column:reset_token_hash"`
	ResetTokenExpiresAt *time.Time `gorm:"column:reset_token_expires_at"`

	RoleChangeTokenHash *string    `gorm:"column:role_change_token_hash"`
	RoleChangeRoles     []string   `gorm:"column:role_change_roles;serializer:json"`
	RoleChangeExpiresAt *time.Time `gorm:"column:role_change_expires_at"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
