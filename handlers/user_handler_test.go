package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/payroll-api/cognito"
	"github.com/upb/payroll-api/middleware"
	"github.com/upb/payroll-api/models"
	"go.uber.org/zap/zaptest"
)

func TestGetCurrentUserHandler(t *testing.T) {
	t.Run("returns 200 with user info when authenticated", func(t *testing.T) {
		user := &models.UserInfo{
			Sub:        "user-123",
			Email:      "user@example.com",
			GivenName:  "Jane",
			FamilyName: "Doe",
			Groups:     []string{"employee"},
			OrgID:      "42",
		}

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(middleware.WithUser(req.Context(), user))
		rec := httptest.NewRecorder()

		GetCurrentUserHandler()(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body struct {
			Data struct {
				Sub      string   `json:"sub"`
				Email    string   `json:"email"`
				Groups   []string `json:"groups"`
				OrgID    string   `json:"org_id"`
				FullName string   `json:"full_name"`
				IsAdmin  bool     `json:"is_admin"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "user-123", body.Data.Sub)
		assert.Equal(t, "user@example.com", body.Data.Email)
		assert.Equal(t, []string{"employee"}, body.Data.Groups)
		assert.Equal(t, "42", body.Data.OrgID)
		assert.Equal(t, "Jane Doe", body.Data.FullName)
		assert.False(t, body.Data.IsAdmin)
	})

	t.Run("test user is an admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(middleware.WithUser(req.Context(), models.TestUser()))
		rec := httptest.NewRecorder()

		GetCurrentUserHandler()(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"is_admin":true`)
		assert.Contains(t, rec.Body.String(), `"sub":"test_user_123"`)
	})

	t.Run("returns 401 when no user in context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		GetCurrentUserHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) ValidateToken(ctx context.Context, token string) (*models.UserInfo, error) {
	args := m.Called(ctx, token)
	if user, ok := args.Get(0).(*models.UserInfo); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestVerifyTokenHandler(t *testing.T) {
	user := &models.UserInfo{Sub: "user-123", Email: "user@example.com", Groups: []string{"manager"}}

	tests := []struct {
		name           string
		header         string
		enableTestUser bool
		setupMock      func(*mockVerifier)
		wantStatus     int
		wantSub        string
		wantDetail     string
	}{
		{
			name:   "valid token",
			header: "Bearer good-token",
			setupMock: func(m *mockVerifier) {
				m.On("ValidateToken", mock.Anything, "good-token").Return(user, nil)
			},
			wantStatus: http.StatusOK,
			wantSub:    "user-123",
		},
		{
			name:   "rejected token",
			header: "Bearer bad-token",
			setupMock: func(m *mockVerifier) {
				m.On("ValidateToken", mock.Anything, "bad-token").Return(nil, cognito.ErrTokenExpired)
			},
			wantStatus: http.StatusUnauthorized,
			wantDetail: "Token has expired",
		},
		{
			name:           "rejected token falls back to test user",
			header:         "Bearer bad-token",
			enableTestUser: true,
			setupMock: func(m *mockVerifier) {
				m.On("ValidateToken", mock.Anything, "bad-token").Return(nil, cognito.ErrInvalidToken)
			},
			wantStatus: http.StatusOK,
			wantSub:    "test_user_123",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantDetail: "No Authorization header",
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
			wantDetail: "Invalid authentication scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := new(mockVerifier)
			if tt.setupMock != nil {
				tt.setupMock(verifier)
			}
			authn := middleware.NewAuthenticator(verifier, tt.enableTestUser, zaptest.NewLogger(t))

			req := httptest.NewRequest(http.MethodPost, "/api/auth/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			VerifyTokenHandler(authn)(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantSub != "" {
				var body struct {
					Data struct {
						Sub string `json:"sub"`
					} `json:"data"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantSub, body.Data.Sub)
			}
			if tt.wantDetail != "" {
				assert.Contains(t, rec.Body.String(), tt.wantDetail)
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
			verifier.AssertExpectations(t)
		})
	}
}
