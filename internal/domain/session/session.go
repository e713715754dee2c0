// Package session defines the tenant session model: the bearer token, the
// logged-in user with a canonical role, and the tenant profile.
package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role represents the authorization level of a tenant user.
type Role string

const (
	RoleAdmin Role = "tenant_admin"
	RoleStaff Role = "tenant_staff"
)

// ValidRoles is the set of all valid tenant roles.
var ValidRoles = map[Role]bool{
	RoleAdmin: true,
	RoleStaff: true,
}

// User is a tenant user as stored in the session. The role is normalized
// once at decode time; no other code deals with the backend's legacy
// role field variants.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role"`
}

// UnmarshalJSON decodes a user payload from the backend, deriving the
// canonical role from the first present of role, user_type, type, and
// finally the is_admin flag.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"id"`
		Name     string          `json:"name"`
		FullName string          `json:"full_name"`
		Role     string          `json:"role"`
		UserType string          `json:"user_type"`
		Type     string          `json:"type"`
		IsAdmin  bool            `json:"is_admin"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	// The backend sends numeric IDs; our own session encoding sends strings.
	u.ID = strings.Trim(string(raw.ID), `"`)
	u.Name = raw.Name
	u.FullName = raw.FullName
	u.Role = NormalizeRole(raw.Role, raw.UserType, raw.Type, raw.IsAdmin)
	return nil
}

// NormalizeRole picks the first non-empty role candidate; when none is
// present the is_admin flag decides between admin and staff.
func NormalizeRole(role, userType, legacyType string, isAdmin bool) Role {
	for _, v := range []string{role, userType, legacyType} {
		if v != "" {
			return Role(v)
		}
	}
	if isAdmin {
		return RoleAdmin
	}
	return RoleStaff
}

// DisplayName returns the user's name, falling back to full_name, then "Unknown".
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.FullName != "" {
		return u.FullName
	}
	return "Unknown"
}

// Tenant is the tenant (service center) profile attached to the session.
type Tenant struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// Session is the authenticated state held server-side for one browser.
type Session struct {
	Token  string `json:"token"`
	User   User   `json:"user"`
	Tenant Tenant `json:"tenant"`
}

// Valid reports whether the session carries a non-expired token.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && !IsTokenExpired(s.Token, now)
}

// Allowed reports whether the session role is permitted for the given role
// set. An empty set allows any authenticated session.
func (s *Session) Allowed(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if s.User.Role == r {
			return true
		}
	}
	return false
}

// IsTokenExpired reports whether the bearer token's exp claim has passed.
// The claim is decoded without signature verification (the backend signs
// and validates; the portal only needs the expiry). Any decode failure,
// a missing token, or a missing exp claim counts as expired.
func IsTokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(now)
}
