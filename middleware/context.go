package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/payroll-api/models"
)

// Context key type to avoid collisions
type contextKey string

// UserKey is the context key for the authenticated user
const UserKey contextKey = "user"

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// UserFromContext retrieves the authenticated user from context
func UserFromContext(ctx context.Context) *models.UserInfo {
	if val := ctx.Value(UserKey); val != nil {
		if user, ok := val.(*models.UserInfo); ok {
			return user
		}
	}
	return nil
}

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user *models.UserInfo) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
