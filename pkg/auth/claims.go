package auth

import (
	"github.com/embercart/embercart-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Email    string
	Roles    []string
	Verified bool
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
	Verified bool      `json:"verified"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims grant the given role.
func (c *AccessTokenClaims) HasRole(role enums.Role) bool {
	return enums.ContainsRole(c.Roles, role)
}
