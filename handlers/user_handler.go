package handlers

import (
	"context"
	"net/http"

	"github.com/upb/payroll-api/middleware"
	"github.com/upb/payroll-api/models"
	"github.com/upb/payroll-api/utils"
)

// CurrentUserResponse is the response body for the current-user endpoints
type CurrentUserResponse struct {
	*models.UserInfo
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

func newCurrentUserResponse(user *models.UserInfo) CurrentUserResponse {
	return CurrentUserResponse{
		UserInfo: user,
		FullName: user.FullName(),
		IsAdmin:  user.IsAdmin(),
	}
}

// GetCurrentUserHandler returns the identity resolved by the auth middleware
func GetCurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		_ = utils.WriteOK(w, newCurrentUserResponse(user))
	}
}

// CredentialAuthenticator resolves parsed credentials to a user
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, creds *middleware.Credentials) (*models.UserInfo, error)
}

// VerifyTokenHandler verifies the request's bearer token itself and returns
// the identity it carries. It is mounted on a public path so the global
// middleware does not verify the token a second time.
func VerifyTokenHandler(authn CredentialAuthenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, err := middleware.ParseAuthorization(r.Header.Get("Authorization"))
		if err != nil {
			authErr := middleware.AsAuthError(err)
			_ = utils.WriteError(w, authErr.Status, authErr.Detail, nil)
			return
		}

		user, err := authn.Authenticate(r.Context(), creds)
		if err != nil {
			authErr := middleware.AsAuthError(err)
			_ = utils.WriteError(w, authErr.Status, authErr.Detail, nil)
			return
		}
		_ = utils.WriteOK(w, newCurrentUserResponse(user))
	}
}
