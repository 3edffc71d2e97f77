package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleHospital     Role = "hospital"
	RoleMunicipality Role = "municipality"
	RoleAdmin        Role = "admin"
	RoleSuperAdmin   Role = "superadmin"
)

// Valid reports whether r is one of the four account roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHospital, RoleMunicipality, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsStaff is true for the organisational roles an admin may manage.
func (r Role) IsStaff() bool {
	return r == RoleHospital || r == RoleMunicipality
}

type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	DisplayName      string     `json:"name" db:"display_name"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	Role             Role       `json:"role" db:"role"`
	ResetToken       *string    `json:"-" db:"reset_token"`
	ResetTokenExpiry *time.Time `json:"-" db:"reset_token_expiry"`
	RefreshToken     *string    `json:"-" db:"refresh_token"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}

// UserRef is the resolved view of a referenced account embedded in declaration listings.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role,omitempty"`
}

func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Name: u.DisplayName, Email: u.Email, Role: u.Role}
}

// UserFilter narrows user listings; an empty Roles slice matches every role.
type UserFilter struct {
	Roles []Role
}

// ParseRole accepts the canonical role names and the legacy French ones
// ("hopital", "mairie") still sent by older clients.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hospital", "hopital", "hôpital":
		return RoleHospital, true
	case "municipality", "mairie":
		return RoleMunicipality, true
	case "admin":
		return RoleAdmin, true
	case "superadmin":
		return RoleSuperAdmin, true
	}
	return "", false
}
