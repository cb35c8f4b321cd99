package auth

import (
	"context"

	"github.com/notekeep/notekeep/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// authContextKey is the context key for storing AuthContext.
	authContextKey contextKey = "auth_context"
)

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves AuthContext from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// UserIDFromContext returns the verified user ID bound by the auth middleware.
// The boolean is false when the request was never authenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	auth := AuthFromContext(ctx)
	if auth == nil || auth.UserID == "" {
		return "", false
	}
	return auth.UserID, true
}
