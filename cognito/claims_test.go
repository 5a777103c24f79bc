package cognito

import (
	"encoding/json"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimsUnmarshal(t *testing.T) {
	t.Run("string org id", func(t *testing.T) {
		var c Claims
		require.NoError(t, json.Unmarshal([]byte(`{"sub":"a","custom:org_id":"org-9"}`), &c))
		assert.Equal(t, flexString("org-9"), c.CustomOrgID)
	})

	t.Run("numeric org id", func(t *testing.T) {
		var c Claims
		require.NoError(t, json.Unmarshal([]byte(`{"sub":"a","org_id":12}`), &c))
		assert.Equal(t, flexString("12"), c.OrgID)
	})

	t.Run("null org id", func(t *testing.T) {
		var c Claims
		require.NoError(t, json.Unmarshal([]byte(`{"sub":"a","org_id":null}`), &c))
		assert.Equal(t, flexString(""), c.OrgID)
	})

	t.Run("object org id is rejected", func(t *testing.T) {
		var c Claims
		err := json.Unmarshal([]byte(`{"sub":"a","org_id":{"id":1}}`), &c)
		assert.ErrorIs(t, err, ErrInvalidClaimType)
	})
}

func TestClaimsUserInfo(t *testing.T) {
	t.Run("maps all fields", func(t *testing.T) {
		c := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"},
			Email:            "a@example.com",
			GivenName:        "A",
			FamilyName:       "B",
			CognitoGroups:    []string{" Admin ", "", "HR"},
			CustomOrgID:      "3",
		}

		u, err := c.UserInfo()
		require.NoError(t, err)
		assert.Equal(t, "sub-1", u.Sub)
		assert.Equal(t, "a@example.com", u.Email)
		assert.Equal(t, "A", u.GivenName)
		assert.Equal(t, "B", u.FamilyName)
		assert.Equal(t, []string{"admin", "hr"}, u.Groups)
		assert.Equal(t, "3", u.OrgID)
	})

	t.Run("cognito groups win over legacy groups", func(t *testing.T) {
		c := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"},
			CognitoGroups:    []string{"manager"},
			Groups:           []string{"employee"},
			OrgID:            "5",
		}

		u, err := c.UserInfo()
		require.NoError(t, err)
		assert.Equal(t, []string{"manager"}, u.Groups)
		assert.Equal(t, "5", u.OrgID)
	})

	t.Run("missing sub", func(t *testing.T) {
		_, err := (&Claims{}).UserInfo()
		assert.ErrorIs(t, err, ErrMissingClaim)
	})
}

func TestClaimsTokenUse(t *testing.T) {
	for _, use := range []string{"", "id", "access"} {
		assert.NoError(t, (&Claims{TokenUse: use}).validateTokenUse(), use)
	}
	assert.Error(t, (&Claims{TokenUse: "refresh"}).validateTokenUse())
}

func TestClaimsHasAudience(t *testing.T) {
	idToken := &Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"client-a"}}}
	assert.True(t, idToken.hasAudience("client-a"))
	assert.False(t, idToken.hasAudience("client-b"))

	accessToken := &Claims{ClientID: "client-a"}
	assert.True(t, accessToken.hasAudience("client-a"))
	assert.False(t, accessToken.hasAudience("client-b"))
}
