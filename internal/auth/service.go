package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/embercart/embercart-backend/internal/users"
	pkgauth "github.com/embercart/embercart-backend/pkg/auth"
	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/db"
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/mailer"
	"github.com/embercart/embercart-backend/pkg/security"
	"gorm.io/gorm"
)

const (
	// VerifyTokenTTL bounds how long an email verification link stays valid.
	VerifyTokenTTL = 24 * time.Hour
	// ResetTokenTTL bounds how long a password reset link stays valid.
	ResetTokenTTL = time.Hour
)

// Service defines the authentication flows.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (*users.Profile, error)
	VerifyEmail(ctx context.Context, token string) (*users.Profile, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, input ResetPasswordInput) error
}

type service struct {
	repo users.Repository
	mail mailer.Sender
	cfg  *config.Config
	now  func() time.Time
}

// NewService builds an auth service with the required dependencies.
func NewService(repo users.Repository, mail mailer.Sender, cfg *config.Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	return &service{repo: repo, mail: mail, cfg: cfg, now: time.Now}, nil
}

func (s *service) Signup(ctx context.Context, input SignupInput) (*users.Profile, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	hash, err := security.HashPassword(input.Password, s.cfg.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	token, digest, err := security.GenerateActionToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating verification token")
	}
	expiresAt := s.now().Add(VerifyTokenTTL)

	user := &models.User{
		Email:                email,
		PasswordHash:         hash,
		Name:                 strings.TrimSpace(input.Name),
		Phone:                input.Phone,
		Roles:                []string{enums.RoleUser.String()},
		VerifyTokenHash:      &digest,
		VerifyTokenExpiresAt: &expiresAt,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "creating user")
	}

	if err := s.sendVerificationEmail(ctx, created, token); err != nil {
		// Without the verification email the account is unreachable, so
		// the row goes away and the signup can simply be retried.
		_ = s.repo.Delete(ctx, created.ID)
		return nil, err
	}

	profile := users.ToProfile(created)
	return &profile, nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) (*users.Profile, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	digest := security.HashActionToken(token)
	user, err := s.repo.FindByVerifyTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification link is invalid or already used")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading verification request")
	}

	if user.VerifyTokenExpiresAt == nil || s.now().After(*user.VerifyTokenExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "verification link has expired")
	}

	updates := map[string]any{
		"verified":                true,
		"verify_token_hash":       nil,
		"verify_token_expires_at": nil,
	}
	if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "marking email verified")
	}

	user.Verified = true
	profile := users.ToProfile(user)
	return &profile, nil
}

func (s *service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same response as the success path so emails cannot be enumerated.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading user")
	}
	if user.Verified {
		return nil
	}

	token, digest, err := security.GenerateActionToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating verification token")
	}
	expiresAt := s.now().Add(VerifyTokenTTL)
	updates := map[string]any{
		"verify_token_hash":       digest,
		"verify_token_expires_at": expiresAt,
	}
	if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving verification token")
	}

	return s.sendVerificationEmail(ctx, user, token)
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	if !user.Verified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "email address is not verified")
	}

	signed, err := pkgauth.MintAccessToken(s.cfg.JWT, s.now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Email:    user.Email,
		Roles:    user.Roles,
		Verified: user.Verified,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating last login")
	}

	return &LoginResult{
		AccessToken: signed,
		User:        users.ToProfile(user),
	}, nil
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same response as the success path so emails cannot be enumerated.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading user")
	}

	token, digest, err := security.GenerateActionToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating reset token")
	}
	expiresAt := s.now().Add(ResetTokenTTL)
	updates := map[string]any{
		"reset_token_hash":       digest,
		"reset_token_expires_at": expiresAt,
	}
	if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving reset token")
	}

	link := fmt.Sprintf("%s/api/auth/reset-password?token=%s", s.cfg.App.BaseURL, token)
	msg := mailer.Message{
		ToEmail:      user.Email,
		ToName:       user.Name,
		Subject:      "Reset your password",
		PlainContent: fmt.Sprintf("Reset your password within the next hour: %s", link),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		// A token nobody received must not stay live.
		_ = s.repo.Updates(ctx, user.ID, map[string]any{
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		})
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sending reset email")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if input.Token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if len(input.NewPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	digest := security.HashActionToken(input.Token)
	user, err := s.repo.FindByResetTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reset link is invalid or already used")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading reset request")
	}

	if user.ResetTokenExpiresAt == nil || s.now().After(*user.ResetTokenExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "reset link has expired")
	}

	hash, err := security.HashPassword(input.NewPassword, s.cfg.Password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	updates := map[string]any{
		"password_hash":          hash,
		"reset_token_hash":       nil,
		"reset_token_expires_at": nil,
	}
	if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating password")
	}
	return nil
}

func (s *service) sendVerificationEmail(ctx context.Context, user *models.User, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", s.cfg.App.BaseURL, token)
	msg := mailer.Message{
		ToEmail:      user.Email,
		ToName:       user.Name,
		Subject:      "Verify your email address",
		PlainContent: fmt.Sprintf("Welcome to Embercart. Verify your email within 24 hours: %s", link),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sending verification email")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
