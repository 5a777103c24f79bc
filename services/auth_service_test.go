package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/payroll-api/config"
	"go.uber.org/zap/zaptest"
)

func newTestExchanger(t *testing.T, domain, secret string) *CognitoTokenExchanger {
	return NewCognitoTokenExchanger(config.CognitoConfig{
		Domain:       domain,
		ClientID:     "client-123",
		ClientSecret: secret,
	}, zaptest.NewLogger(t))
}

func TestExchangeCode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-123", r.PostForm.Get("client_id"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "http://localhost:8000/api/auth/callback", r.PostForm.Get("redirect_uri"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-123", user)
		assert.Equal(t, "s3cret", pass)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{
			IDToken:     "id.jwt",
			AccessToken: "access.jwt",
			ExpiresIn:   3600,
			TokenType:   "Bearer",
		})
	}))
	defer server.Close()

	exchanger := newTestExchanger(t, server.URL+"/", "s3cret")
	assert.Equal(t, server.URL+"/oauth2/token", exchanger.TokenURL())

	tokens, err := exchanger.ExchangeCode(context.Background(), "the-code", "http://localhost:8000/api/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "id.jwt", tokens.IDToken)
	assert.Equal(t, "access.jwt", tokens.AccessToken)
	assert.Equal(t, 3600, tokens.ExpiresIn)
}

func TestExchangeCode_PublicClientSendsNoBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		_, _ = w.Write([]byte(`{"id_token":"id.jwt","access_token":"a","expires_in":60,"token_type":"Bearer"}`))
	}))
	defer server.Close()

	_, err := newTestExchanger(t, server.URL, "").ExchangeCode(context.Background(), "code", "http://cb")
	require.NoError(t, err)
}

func TestExchangeCode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"invalid grant", http.StatusBadRequest, `{"error":"invalid_grant"}`, ErrCodeRejected},
		{"server error", http.StatusBadGateway, `oops`, ErrTokenEndpoint},
		{"missing id token", http.StatusOK, `{"access_token":"a"}`, ErrMissingIDToken},
		{"garbage body", http.StatusOK, `not json`, ErrTokenEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			tokens, err := newTestExchanger(t, server.URL, "").ExchangeCode(context.Background(), "code", "http://cb")
			assert.Nil(t, tokens)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExchangeCode_Preconditions(t *testing.T) {
	unconfigured := NewCognitoTokenExchanger(config.CognitoConfig{}, nil)
	_, err := unconfigured.ExchangeCode(context.Background(), "code", "http://cb")
	assert.ErrorIs(t, err, ErrHostedUINotConfigured)
	assert.True(t, IsNotConfiguredError(err))

	_, err = newTestExchanger(t, "https://auth.example.com", "").ExchangeCode(context.Background(), "", "http://cb")
	assert.ErrorIs(t, err, ErrMissingCode)
}

func TestExchangeCode_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestExchanger(t, url, "").ExchangeCode(context.Background(), "code", "http://cb")
	assert.True(t, IsExternalError(err))
}
