package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned by account lookups for an unknown id, email or login.
var ErrAccountNotFound = errors.New("account not found")

// Role represents an account role. RoleStaff and RoleAdmin are the staff variants.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// IsStaff reports whether r is one of the staff variants.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// AccountStatus is Active or Inactive; accounts are disabled, never deleted.
type AccountStatus string

const (
	AccountActive   AccountStatus = "Active"
	AccountInactive AccountStatus = "Inactive"
)

// Account is a user or staff profile.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Username     string        `json:"username"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	LeafPoints   int           `json:"leaf_points"`
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AccountPublic is Account without sensitive fields for API responses.
type AccountPublic struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	Username   string        `json:"username"`
	Phone      string        `json:"phone"`
	Email      string        `json:"email"`
	Role       Role          `json:"role"`
	LeafPoints int           `json:"leaf_points"`
	Status     AccountStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ToPublic converts Account to AccountPublic.
func (a *Account) ToPublic() AccountPublic {
	return AccountPublic{
		ID:         a.ID,
		Name:       a.Name,
		Username:   a.Username,
		Phone:      a.Phone,
		Email:      a.Email,
		Role:       a.Role,
		LeafPoints: a.LeafPoints,
		Status:     a.Status,
		CreatedAt:  a.CreatedAt,
	}
}
