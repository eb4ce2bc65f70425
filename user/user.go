// Package user defines platform accounts and their persistence contract.
package user

import (
	"github.com/marirs/velocty"
)

// Role controls what a user may do within a tenant.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// User is a platform account scoped to one tenant.
type User struct {
	velocty.Entity

	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	Active       bool   `json:"active"`
}
