package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/upb/payroll-api/cognito"
)

var (
	// ErrNoCredentials is returned when a request carries no credentials at all
	ErrNoCredentials = errors.New("no authentication credentials provided")

	// ErrMissingHeader is returned when the Authorization header is absent
	ErrMissingHeader = errors.New("no Authorization header")

	// ErrMalformedHeader is returned when the header is not "<scheme> <token>"
	ErrMalformedHeader = errors.New("invalid Authorization header format")

	// ErrUnsupportedScheme is returned when the scheme is not Bearer
	ErrUnsupportedScheme = errors.New("invalid authentication scheme")
)

// AuthError is an authentication failure carrying the HTTP status and the
// detail shown to the client
type AuthError struct {
	Status int
	Detail string
	Err    error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Detail, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Detail)
}

// Unwrap implements errors.Unwrap
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Unauthorized wraps err as a 401 with a client-safe detail
func Unauthorized(err error) *AuthError {
	return &AuthError{
		Status: http.StatusUnauthorized,
		Detail: detailFor(err),
		Err:    err,
	}
}

// detailFor maps known failures onto the messages clients see.
// Unclassified verifier errors are not echoed back.
func detailFor(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return "No authentication credentials provided"
	case errors.Is(err, ErrMissingHeader):
		return "No Authorization header"
	case errors.Is(err, ErrMalformedHeader):
		return "Invalid Authorization header format"
	case errors.Is(err, ErrUnsupportedScheme):
		return "Invalid authentication scheme"
	case errors.Is(err, cognito.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, cognito.ErrKeyNotFound):
		return "Invalid token: Key not found"
	case errors.Is(err, cognito.ErrInvalidIssuer):
		return "Invalid token: Invalid issuer"
	case errors.Is(err, cognito.ErrInvalidAudience):
		return "Invalid token: Invalid audience"
	case errors.Is(err, cognito.ErrInvalidToken):
		return "Invalid token"
	default:
		return "Authentication failed"
	}
}

// AsAuthError returns err as an *AuthError, wrapping it as a 401 if needed
func AsAuthError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return Unauthorized(err)
}
