package auth

import (
	"github.com/embercart/embercart-backend/internal/users"
)

// SignupInput carries the fields needed to create an account.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

// LoginInput carries the credential pair.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is the successful authentication response.
type LoginResult struct {
	AccessToken string        `json:"access_token"`
	User        users.Profile `json:"user"`
}

// ResetPasswordInput resolves a password reset token.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}
