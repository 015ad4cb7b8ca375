package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleBasic = "basic"
	RoleAdmin = "admin"
)

type User struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Email          string     `json:"email" db:"email"`
	Role           string     `json:"role" db:"role"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
	IsDeactivated  bool       `json:"is_deactivated" db:"is_deactivated"`
	DeactivatedAt  *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
	LastActiveAt   *time.Time `json:"last_active_at,omitempty" db:"last_active_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// NormalizedRole coerces unknown role values to basic rather than
// propagating them into tokens or responses.
func (u *User) NormalizedRole() string {
	switch u.Role {
	case RoleBasic, RoleAdmin:
		return u.Role
	default:
		return RoleBasic
	}
}

// ApprovedEmail is a whitelist entry gating first-time account creation.
// Existing accounts are governed by User.ExpirationDate instead.
type ApprovedEmail struct {
	Email          string     `json:"email" db:"email"`
	Role           string     `json:"role" db:"role"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
