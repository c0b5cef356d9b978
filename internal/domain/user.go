package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Role is a caller's permission tier.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RoleMember    Role = "MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return true
	}
	return false
}

// User represents a caller identity, materialized on first authentication.
type User struct {
	ID        string    `json:"id"` // issuer subject
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRepository defines data access for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// ResolveOrCreate inserts the user when absent, otherwise refreshes
	// email and name and leaves the stored role alone.
	ResolveOrCreate(ctx context.Context, user *User) (*User, error)
	// Upsert inserts or fully overwrites email, name and role.
	Upsert(ctx context.Context, user *User) (*User, error)
}
