package domain

import (
	"strings"
	"time"
)

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// Role is the authorization tier of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a stored role string back to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// User models an account able to submit readings.
type User struct {
	ID           string
	Login        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user may inspect other users' readings.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// WithPasswordHash returns a copy of u carrying the new hash.
func (u User) WithPasswordHash(hash string, at time.Time) User {
	u.PasswordHash = hash
	u.UpdatedAt = at
	return u
}

// Sanitized returns a copy without the password hash, suitable for handing to the console.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
