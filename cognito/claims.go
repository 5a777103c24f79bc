package cognito

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/payroll-api/models"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")

	// ErrInvalidClaimType is returned when a claim has an unexpected type
	ErrInvalidClaimType = errors.New("invalid claim type")
)

// Claims represents the claims carried by Cognito id and access tokens
type Claims struct {
	jwt.RegisteredClaims
	Email           string `json:"email"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	TokenUse        string `json:"token_use"`
	ClientID        string `json:"client_id"` // access tokens carry the app client here instead of aud
	CognitoUsername string `json:"cognito:username"`

	// Groups come from the pool's group membership; older tokens minted by
	// the pre-token-generation trigger used a plain "groups" claim.
	CognitoGroups []string `json:"cognito:groups"`
	Groups        []string `json:"groups"`

	CustomOrgID flexString `json:"custom:org_id"`
	OrgID       flexString `json:"org_id"`
}

// flexString accepts either a JSON string or a JSON number.
// The org id attribute has been written both ways by the user pool triggers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: expected string or number, got %s", ErrInvalidClaimType, string(data))
	}
	*f = flexString(n.String())
	return nil
}

// UserInfo maps the claims onto the request-scoped identity record
func (c *Claims) UserInfo() (*models.UserInfo, error) {
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	groups := c.CognitoGroups
	if len(groups) == 0 {
		groups = c.Groups
	}
	normalized := make([]string, 0, len(groups))
	for _, g := range groups {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			normalized = append(normalized, g)
		}
	}

	orgID := string(c.CustomOrgID)
	if orgID == "" {
		orgID = string(c.OrgID)
	}

	return &models.UserInfo{
		Sub:        c.Subject,
		Email:      c.Email,
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Groups:     normalized,
		OrgID:      orgID,
	}, nil
}

// validateTokenUse accepts Cognito id and access tokens. Tokens from other
// issuers that omit token_use are let through; issuer checks cover them.
func (c *Claims) validateTokenUse() error {
	switch c.TokenUse {
	case "", "id", "access":
		return nil
	default:
		return fmt.Errorf("invalid token_use: %s", c.TokenUse)
	}
}

// hasAudience checks aud for id tokens and client_id for access tokens
func (c *Claims) hasAudience(clientID string) bool {
	if c.ClientID == clientID {
		return true
	}
	for _, aud := range c.Audience {
		if aud == clientID {
			return true
		}
	}
	return false
}
