package auth

import (
	"time"
)

// Role is the caller's privilege level.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a stored role string to a Role. Unknown values are members.
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleModerator, RoleAdmin:
		return r
	default:
		return RoleMember
	}
}

// Claims represents the claims stored in a PASETO access token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// CanModerate reports whether the holder may review submissions.
func (c *Claims) CanModerate() bool {
	return c.Role == RoleModerator || c.Role == RoleAdmin
}
