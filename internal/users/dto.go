package users

import (
	"time"

	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Profile is the public shape of a user account.
type Profile struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Phone           *string    `json:"phone,omitempty"`
	Verified        bool       `json:"verified"`
	Roles           []string   `json:"roles"`
	ProfileImageURL *string    `json:"profile_image_url,omitempty"`
	CartTotal       float64    `json:"cart_total"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToProfile maps the persisted model into its public shape.
func ToProfile(u *models.User) Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		Verified:        u.Verified,
		Roles:           u.Roles,
		ProfileImageURL: u.ProfileImageURL,
		CartTotal:       u.CartTotal,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
	}
}

// UpdateProfileInput carries the editable profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	Name  *string
	Phone *string
}

// RoleChangeRequestInput is a user's request for extra roles on their own
// account. An administrator decides it via the emailed links.
type RoleChangeRequestInput struct {
	UserID uuid.UUID
	Roles  []string
}

// RoleChangeRequestResult partitions the requested roles and carries the
// decision links sent to an administrator.
type RoleChangeRequestResult struct {
	AlreadyHeld []string `json:"already_held"`
	Pending     []string `json:"pending"`
	Invalid     []string `json:"invalid"`
	ApproveURL  string   `json:"approve_url,omitempty"`
	RejectURL   string   `json:"reject_url,omitempty"`
	// Token is only populated when at least one role is pending.
	Token string `json:"-"`
}

// Role change resolution outcomes.
const (
	RoleChangeApproved        = "approved"
	RoleChangeRejected        = "rejected"
	RoleChangeAlreadyResolved = "already_resolved"
)

// RoleChangeResolution reports what an admin's decision link did. A link
// whose token no longer matches resolves to RoleChangeAlreadyResolved.
type RoleChangeResolution struct {
	Status  string   `json:"status"`
	Profile *Profile `json:"profile,omitempty"`
}

// UserList is one page of accounts plus pagination metadata.
type UserList struct {
	Users []Profile `json:"users"`
	Total int64     `json:"total"`
}
