package middleware

import (
	"net/http"
	"strings"

	"github.com/upb/payroll-api/models"
	"github.com/upb/payroll-api/utils"
	"go.uber.org/zap"
)

// DefaultPublicPaths are the path prefixes served without authentication
var DefaultPublicPaths = []string{
	"/health",
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/reset-password",
	"/docs",
	"/openapi.json",
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	authenticator *Authenticator
	publicPaths   []string
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware.
// A nil publicPaths uses DefaultPublicPaths; empty entries are dropped since
// an empty prefix would match every path.
func NewAuthMiddleware(authenticator *Authenticator, publicPaths []string, logger *zap.Logger) *AuthMiddleware {
	if publicPaths == nil {
		publicPaths = DefaultPublicPaths
	}

	paths := make([]string, 0, len(publicPaths))
	for _, p := range publicPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	return &AuthMiddleware{
		authenticator: authenticator,
		publicPaths:   paths,
		logger:        logger,
	}
}

// PublicPaths returns the configured public path prefixes
func (m *AuthMiddleware) PublicPaths() []string {
	out := make([]string, len(m.publicPaths))
	copy(out, m.publicPaths)
	return out
}

// IsPublic reports whether r bypasses authentication: CORS preflights and
// any path starting with a public prefix
func (m *AuthMiddleware) IsPublic(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	for _, prefix := range m.publicPaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// Handler authenticates every non-public request from its Bearer token and
// stores the resolved user in the request context
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.IsPublic(r) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		var user *models.UserInfo
		creds, err := ParseAuthorization(r.Header.Get("Authorization"))
		if err == nil {
			user, err = m.authenticator.Authenticate(ctx, creds)
		}

		if err != nil {
			if !m.authenticator.TestUserEnabled() {
				authErr := AsAuthError(err)
				m.logger.Warn("request rejected",
					zap.String("request_id", requestID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("reason", authErr.Detail))
				_ = utils.WriteError(w, authErr.Status, authErr.Detail, nil)
				return
			}

			m.logger.Warn("using test user due to auth failure",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			user = models.TestUser()
		}

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
	})
}

// RequireGroup is a middleware that requires membership in a group.
// It must run after Handler.
func (m *AuthMiddleware) RequireGroup(group string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			user := UserFromContext(ctx)
			if user == nil {
				m.logger.Error("user not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !user.HasGroup(group) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("required_group", group),
					zap.Strings("user_groups", user.Groups))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
