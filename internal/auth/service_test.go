package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/embercart/embercart-backend/internal/users"
	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/db/models"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeMailer struct {
	sent    []mailer.Message
	sendErr error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

// lastToken pulls the token query param out of the most recent email.
func (f *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	body := f.sent[len(f.sent)-1].PlainContent
	idx := strings.LastIndex(body, "token=")
	require.GreaterOrEqual(t, idx, 0, "no token in email body: %s", body)
	return strings.TrimSpace(body[idx+len("token="):])
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	usersDDL := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  verified INTEGER NOT NULL DEFAULT 0,
  roles TEXT NOT NULL DEFAULT '["user"]',
  profile_image_url TEXT,
  profile_image_id TEXT,
  cart_total REAL NOT NULL DEFAULT 0,
  verify_token_hash TEXT,
  verify_token_expires_at DATETIME,
  reset_token_hash TEXT,
  reset_token_expires_at DATETIME,
  role_change_token_hash TEXT,
  role_change_roles TEXT,
  role_change_expires_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(usersDDL).Error)
	return db
}

func testAuthConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:     "dev",
			Port:    "8080",
			BaseURL: "http://localhost:8080",
		},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "embercart-test",
			ExpirationMinutes: 60,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
	}
}

func newAuthFixture(t *testing.T) (Service, *fakeMailer, *gorm.DB) {
	t.Helper()
	db := setupAuthTestDB(t)
	mail := &fakeMailer{}
	svc, err := NewService(users.NewRepository(db), mail, testAuthConfig())
	require.NoError(t, err)
	return svc, mail, db
}

func TestSignupVerifyLogin(t *testing.T) {
	svc, mail, _ := newAuthFixture(t)
	ctx := context.Background()

	profile, err := svc.Signup(ctx, SignupInput{
		Email:    "Shopper@Example.com",
		Password: "hunter2hunter2",
		Name:     "Shopper",
	})
	require.NoError(t, err)
	assert.Equal(t, "shopper@example.com", profile.Email)
	assert.False(t, profile.Verified)
	assert.Equal(t, []string{"user"}, profile.Roles)
	require.Len(t, mail.sent, 1)

	// Unverified accounts cannot log in yet.
	_, err = svc.Login(ctx, LoginInput{Email: "shopper@example.com", Password: "hunter2hunter2"})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())

	verified, err := svc.VerifyEmail(ctx, mail.lastToken(t))
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	result, err := svc.Login(ctx, LoginInput{Email: "shopper@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, profile.ID, result.User.ID)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "hunter2hunter2", Name: "A"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "hunter2hunter2", Name: "A2"})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestVerifyEmailTokenSingleUse(t *testing.T) {
	svc, mail, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "b@example.com", Password: "hunter2hunter2", Name: "B"})
	require.NoError(t, err)
	token := mail.lastToken(t)

	_, err = svc.VerifyEmail(ctx, token)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, token)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	svc, mail, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "c@example.com", Password: "hunter2hunter2", Name: "C"})
	require.NoError(t, err)
	token := mail.lastToken(t)

	svc.(*service).now = func() time.Time { return time.Now().Add(VerifyTokenTTL + time.Minute) }

	_, err = svc.VerifyEmail(ctx, token)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeInvalidOperation, appErr.Code())
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mail, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "d@example.com", Password: "hunter2hunter2", Name: "D"})
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, mail.lastToken(t))
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "d@example.com", Password: "wrong-password"})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())

	// Unknown accounts get the same answer as a bad password.
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever123"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, mail, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "e@example.com", Password: "hunter2hunter2", Name: "E"})
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, mail.lastToken(t))
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "e@example.com"))
	token := mail.lastToken(t)

	require.NoError(t, svc.ResetPassword(ctx, ResetPasswordInput{
		Token:       token,
		NewPassword: "brand-new-pass",
	}))

	// Old password is dead, new one works.
	_, err = svc.Login(ctx, LoginInput{Email: "e@example.com", Password: "hunter2hunter2"})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())

	_, err = svc.Login(ctx, LoginInput{Email: "e@example.com", Password: "brand-new-pass"})
	require.NoError(t, err)

	// Reset tokens are single-use.
	err = svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "another-pass-1"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestSignupMailFailureRollsBackUser(t *testing.T) {
	svc, mail, db := newAuthFixture(t)
	ctx := context.Background()

	mail.sendErr = fmt.Errorf("smtp down")
	_, err := svc.Signup(ctx, SignupInput{
		Email:    "b@example.com",
		Password: "hunter2hunter2",
		Name:     "B",
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeDelivery, appErr.Code())

	// No orphaned account: the same signup works once mail recovers.
	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "b@example.com").Count(&count).Error)
	assert.Zero(t, count)

	mail.sendErr = nil
	_, err = svc.Signup(ctx, SignupInput{
		Email:    "b@example.com",
		Password: "hunter2hunter2",
		Name:     "B",
	})
	require.NoError(t, err)
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	svc, mail, db := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "c@example.com", Password: "hunter2hunter2", Name: "C"})
	require.NoError(t, err)

	mail.sendErr = fmt.Errorf("smtp down")
	err = svc.ForgotPassword(ctx, "c@example.com")
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeDelivery, appErr.Code())

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "email = ?", "c@example.com").Error)
	assert.Nil(t, reloaded.ResetTokenHash)
	assert.Nil(t, reloaded.ResetTokenExpiresAt)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, mail, _ := newAuthFixture(t)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, mail.sent)
}
