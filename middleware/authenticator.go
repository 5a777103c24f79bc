package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/payroll-api/cognito"
	"github.com/upb/payroll-api/models"
	"github.com/upb/payroll-api/utils"
	"go.uber.org/zap"
)

// TokenVerifier is the external token-verification service
type TokenVerifier interface {
	// ValidateToken verifies a bearer token and returns the identity it carries
	ValidateToken(ctx context.Context, token string) (*models.UserInfo, error)
}

// Credentials is a parsed Authorization header
type Credentials struct {
	Scheme string
	Token  string
}

// ParseAuthorization splits an Authorization header into scheme and token.
// The header must be exactly two whitespace-separated fields with a Bearer scheme.
func ParseAuthorization(header string) (*Credentials, error) {
	if header == "" {
		return nil, ErrMissingHeader
	}

	parts := strings.Fields(header)
	if len(parts) != 2 {
		return nil, ErrMalformedHeader
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrUnsupportedScheme
	}

	return &Credentials{Scheme: parts[0], Token: parts[1]}, nil
}

// Authenticator resolves credentials to a user by delegating to a TokenVerifier.
// With the test user enabled, verification failures resolve to models.TestUser.
type Authenticator struct {
	verifier       TokenVerifier
	enableTestUser bool
	logger         *zap.Logger
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(verifier TokenVerifier, enableTestUser bool, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		verifier:       verifier,
		enableTestUser: enableTestUser,
		logger:         logger,
	}
}

// TestUserEnabled reports whether the test user bypass is active
func (a *Authenticator) TestUserEnabled() bool {
	return a.enableTestUser
}

// Authenticate verifies creds and returns the resolved user.
// Errors are *AuthError values. A nil creds is always rejected, even with the
// test user enabled; the bypass only covers failed verification, which
// includes an empty token.
func (a *Authenticator) Authenticate(ctx context.Context, creds *Credentials) (*models.UserInfo, error) {
	requestID := GetRequestIDFromContext(ctx)

	if creds == nil {
		a.logger.Error("no authentication credentials provided",
			zap.String("request_id", requestID))
		return nil, Unauthorized(ErrNoCredentials)
	}

	user, err := a.verifier.ValidateToken(ctx, creds.Token)
	if err == nil {
		if verr := user.Validate(); verr != nil {
			a.logger.Error("verified token carries an invalid identity",
				zap.String("request_id", requestID),
				zap.Any("fields", utils.GetValidationFields(verr)))
			err = fmt.Errorf("%w: %v", cognito.ErrInvalidToken, verr)
		}
	}
	if err != nil {
		a.logger.Error("authentication failed",
			zap.String("request_id", requestID),
			zap.Error(err))

		if a.enableTestUser {
			a.logger.Warn("using test user due to auth failure",
				zap.String("request_id", requestID))
			return models.TestUser(), nil
		}
		return nil, Unauthorized(err)
	}

	a.logger.Info("authentication successful",
		zap.String("request_id", requestID),
		zap.String("sub", user.Sub),
		zap.Strings("groups", user.Groups))

	return user, nil
}
