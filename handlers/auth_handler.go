package handlers

import (
	"net/http"

	"github.com/upb/payroll-api/auth"
	"github.com/upb/payroll-api/utils"
)

// AuthDeps provides auth handler for route wiring
type AuthDeps interface {
	AuthHandler() *auth.Handler
}

// AuthLoginHandler returns an http.HandlerFunc for the login endpoint
func AuthLoginHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleLogin)
}

// AuthRegisterHandler returns an http.HandlerFunc for the registration endpoint
func AuthRegisterHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleRegister)
}

// AuthResetPasswordHandler returns an http.HandlerFunc for the password reset endpoint
func AuthResetPasswordHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleResetPassword)
}

// AuthCallbackHandler returns an http.HandlerFunc for the OAuth callback endpoint
func AuthCallbackHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleCallback)
}

// AuthLogoutHandler returns an http.HandlerFunc for the logout endpoint
func AuthLogoutHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleLogout)
}

func withAuthHandler(deps AuthDeps, fn func(*auth.Handler, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h := deps.AuthHandler(); h != nil {
			fn(h, w, r)
			return
		}
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
	}
}
