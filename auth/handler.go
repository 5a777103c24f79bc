package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/payroll-api/config"
	"github.com/upb/payroll-api/models"
	"github.com/upb/payroll-api/services"
	"github.com/upb/payroll-api/utils"
	"go.uber.org/zap"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName   = "oauth_state"
	stateCookieMaxAge = 600
)

// TokenExchanger exchanges OAuth2 authorization codes for tokens via the OAuth2 token endpoint.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*services.TokenResponse, error)
}

// TokenValidator validates JWT tokens and returns the identity they carry.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.UserInfo, error)
}

// CallbackResponse is returned once the authorization code has been redeemed
type CallbackResponse struct {
	AccessToken  string           `json:"access_token"`
	IDToken      string           `json:"id_token"`
	RefreshToken string           `json:"refresh_token,omitempty"`
	ExpiresIn    int              `json:"expires_in"`
	TokenType    string           `json:"token_type"`
	User         *models.UserInfo `json:"user"`
}

// Handler serves the Cognito hosted UI flows (login, register, reset, callback, logout).
type Handler struct {
	cfg       config.CognitoConfig
	exchanger TokenExchanger
	validator TokenValidator
	logger    *zap.Logger
}

// NewHandler creates a new auth handler with the given config, token exchanger, and validator.
func NewHandler(cfg config.CognitoConfig, exchanger TokenExchanger, validator TokenValidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:       cfg,
		exchanger: exchanger,
		validator: validator,
		logger:    logger,
	}
}

// HandleLogin redirects to the hosted UI authorize endpoint
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.redirectWithState(w, r, "/oauth2/authorize")
}

// HandleRegister redirects to the hosted UI sign-up page
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.redirectWithState(w, r, "/signup")
}

// HandleResetPassword redirects to the hosted UI forgot-password page
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		h.notConfigured(w)
		return
	}
	params := url.Values{
		"client_id":     {h.cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {h.cfg.RedirectURI},
	}
	http.Redirect(w, r, h.hostedURL("/forgotPassword", params), http.StatusFound)
}

// HandleCallback checks state, redeems the code and returns the validated token pair
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.configured() || h.exchanger == nil || h.validator == nil {
		h.notConfigured(w)
		return
	}

	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("hosted UI returned error",
			zap.String("error", errCode),
			zap.String("error_description", query.Get("error_description")),
		)
		_ = utils.WriteUnauthorized(w, "Authentication failed")
		return
	}

	code := query.Get("code")
	state := query.Get("state")

	if code == "" {
		_ = utils.WriteBadRequest(w, "Missing authorization code", nil)
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, "Missing state parameter", nil)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}
	h.setStateCookie(w, "", -1)

	tokens, err := h.exchanger.ExchangeCode(r.Context(), code, h.cfg.RedirectURI)
	if err != nil {
		switch {
		case services.IsNotConfiguredError(err):
			h.notConfigured(w)
		case services.IsExternalError(err):
			h.logger.Error("token exchange failed", zap.Error(err))
			_ = utils.WriteError(w, http.StatusServiceUnavailable, "Authentication service unavailable", nil)
		case services.IsValidationError(err):
			h.logger.Warn("token exchange refused request", zap.Error(err))
			_ = utils.WriteBadRequest(w, "Invalid authorization request", nil)
		case services.IsUnauthorizedError(err):
			h.logger.Warn("token exchange rejected",
				zap.Error(err),
				zap.Any("details", services.GetErrorDetails(err)))
			_ = utils.WriteUnauthorized(w, "Authentication failed")
		default:
			h.logger.Error("token exchange failed", zap.Error(err))
			_ = utils.WriteInternalServerError(w, "Authentication failed")
		}
		return
	}

	user, err := h.validator.ValidateToken(r.Context(), tokens.IDToken)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Invalid token")
		return
	}

	h.logger.Info("user signed in", zap.String("sub", user.Sub), zap.Strings("groups", user.Groups))

	w.Header().Set("Cache-Control", "no-store")
	_ = utils.WriteJSON(w, http.StatusOK, CallbackResponse{
		AccessToken:  tokens.AccessToken,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
		User:         user,
	})
}

// HandleLogout redirects to the hosted UI logout endpoint
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.configured() {
		h.notConfigured(w)
		return
	}
	params := url.Values{
		"client_id":  {h.cfg.ClientID},
		"logout_uri": {logoutURI(h.cfg.RedirectURI)},
	}
	http.Redirect(w, r, h.hostedURL("/logout", params), http.StatusFound)
}

func (h *Handler) redirectWithState(w http.ResponseWriter, r *http.Request, path string) {
	if !h.configured() {
		h.notConfigured(w)
		return
	}

	state := uuid.NewString()
	h.setStateCookie(w, state, stateCookieMaxAge)

	params := url.Values{
		"response_type": {"code"},
		"client_id":     {h.cfg.ClientID},
		"redirect_uri":  {h.cfg.RedirectURI},
		"state":         {state},
		"scope":         {"openid email profile"},
	}
	http.Redirect(w, r, h.hostedURL(path, params), http.StatusFound)
}

func (h *Handler) configured() bool {
	return h.cfg.HostedUIEnabled()
}

func (h *Handler) notConfigured(w http.ResponseWriter) {
	h.logger.Error("cognito hosted UI not configured")
	_ = utils.WriteInternalServerError(w, "Authentication not configured")
}

func (h *Handler) hostedURL(path string, params url.Values) string {
	return strings.TrimSuffix(h.cfg.Domain, "/") + path + "?" + params.Encode()
}

func (h *Handler) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    value,
		Path:     "/api/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.cfg.RedirectURI, "https"),
		// Lax so the cookie survives the top-level redirect back from the hosted UI
		SameSite: http.SameSiteLaxMode,
	})
}

// logoutURI is the origin of the redirect URI; Cognito requires it to be a registered sign-out URL
func logoutURI(redirectURI string) string {
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return redirectURI
	}
	return parsed.Scheme + "://" + parsed.Host
}
