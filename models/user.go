package models

import (
	"strings"

	"github.com/upb/payroll-api/utils"
)

// GroupAdmin is the Cognito group granted the admin routes
const GroupAdmin = "admin"

// UserInfo is the identity resolved from a verified bearer token.
// It is attached to the request context and discarded when the request ends.
type UserInfo struct {
	Sub        string   `json:"sub" validate:"required"`
	Email      string   `json:"email" validate:"omitempty,email"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Groups     []string `json:"groups"`
	OrgID      string   `json:"org_id,omitempty"`
}

// TestUser returns the fixed identity used by the test user bypass
func TestUser() *UserInfo {
	return &UserInfo{
		Sub:        "test_user_123",
		Email:      "test@example.com",
		GivenName:  "Test",
		FamilyName: "User",
		Groups:     []string{GroupAdmin},
		OrgID:      "1",
	}
}

// Validate checks the struct tags on the record
func (u *UserInfo) Validate() error {
	return utils.ValidateStruct(u)
}

// HasGroup reports whether the user belongs to group (case-insensitive)
func (u *UserInfo) HasGroup(group string) bool {
	for _, g := range u.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the user is in the admin group
func (u *UserInfo) IsAdmin() bool {
	return u.HasGroup(GroupAdmin)
}

// FullName joins given and family name, skipping empty parts
func (u *UserInfo) FullName() string {
	return strings.TrimSpace(u.GivenName + " " + u.FamilyName)
}
