package domain

import (
	"fmt"
	"strings"
)

type UserID string

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleUploader Role = "UPLOADER"
	RoleViewer   Role = "VIEWER"
)

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleUploader, RoleViewer}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUploader, RoleViewer:
		return true
	}
	return false
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is created at registration and never mutated afterwards.
type User struct {
	ID           UserID `json:"id"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// Public strips the credential secret.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
