package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/payroll-api/config"
	"go.uber.org/zap"
)

const maxTokenResponseBytes = 1 << 20

// TokenResponse represents the OAuth2 token endpoint response from Cognito
type TokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// CognitoTokenExchanger exchanges authorization codes for tokens via Cognito
type CognitoTokenExchanger struct {
	cfg        config.CognitoConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCognitoTokenExchanger creates a new token exchanger
func NewCognitoTokenExchanger(cfg config.CognitoConfig, logger *zap.Logger) *CognitoTokenExchanger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CognitoTokenExchanger{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// TokenURL returns the hosted UI token endpoint
func (e *CognitoTokenExchanger) TokenURL() string {
	return strings.TrimSuffix(e.cfg.Domain, "/") + "/oauth2/token"
}

// ExchangeCode exchanges an authorization code for ID and access tokens
func (e *CognitoTokenExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	if !e.cfg.HostedUIEnabled() {
		return nil, ErrHostedUINotConfigured
	}
	if code == "" {
		return nil, ErrMissingCode
	}

	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {e.cfg.ClientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	// Confidential app clients authenticate with HTTP basic
	if e.cfg.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(e.cfg.ClientID), url.QueryEscape(e.cfg.ClientSecret))
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, WrapError(ErrorTypeExternal, "token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, WrapError(ErrorTypeExternal, "read token response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		e.logger.Error("token endpoint failure", zap.Int("status", resp.StatusCode))
		return nil, ErrTokenEndpoint.withStatus(resp.StatusCode)
	default:
		// Cognito answers invalid_grant for expired or replayed codes
		e.logger.Warn("authorization code rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("error", oauthErrorCode(body)),
		)
		return nil, ErrCodeRejected.withStatus(resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, WrapError(ErrorTypeExternal, "parse token response", err)
	}

	if tokenResp.IDToken == "" {
		return nil, ErrMissingIDToken
	}

	return &tokenResp, nil
}

// withStatus copies a sentinel so the shared value is never mutated
func (e *DomainError) withStatus(status int) *DomainError {
	return NewDomainError(e.Type, e.Message, e.Err).WithDetail("status", status)
}

func oauthErrorCode(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}
