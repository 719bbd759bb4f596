package domain

import "time"

const (
	RoleAdmin     = "admin"
	RoleEngineer  = "engineer"
	RoleInspector = "inspector"
	RoleViewer    = "viewer"
)

// Roles lists every role a user may hold.
var Roles = []string{RoleAdmin, RoleEngineer, RoleInspector, RoleViewer}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User models an authenticated municipal staff member.
// PasswordHash never leaves the process: it is excluded from JSON.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Department   string    `json:"department"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Claims is the identity carried by a session token.
type Claims struct {
	TokenID   string
	UserID    string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining returns how long the token stays valid after now.
func (c Claims) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
