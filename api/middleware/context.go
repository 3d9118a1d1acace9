package middleware

import (
	"context"

	pkgauth "github.com/embercart/embercart-backend/pkg/auth"
	"github.com/google/uuid"
)

type contextKey string

const ctxClaims contextKey = "claims"

// ClaimsFromContext returns the authenticated token claims, or nil when the
// request was not authenticated.
func ClaimsFromContext(ctx context.Context) *pkgauth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxClaims).(*pkgauth.AccessTokenClaims); ok {
		return v
	}
	return nil
}

// UserIDFromContext returns the authenticated user id, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// RolesFromContext returns the authenticated user's roles.
func RolesFromContext(ctx context.Context) []string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Roles
	}
	return nil
}

// WithClaims injects token claims into the context.
func WithClaims(ctx context.Context, claims *pkgauth.AccessTokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}
