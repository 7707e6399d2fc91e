package domain

import (
	"fmt"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleRequester, RoleProvider, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is the directory projection the scheduler needs. Accounts are owned elsewhere.
type User struct {
	bun.BaseModel `bun:"table:users" json:"-"`

	ID                 string `bun:"id,pk" json:"id"`
	Role               Role   `bun:"role,notnull" json:"role"`
	Active             bool   `bun:"is_active,notnull" json:"is_active"`
	AssignedProviderID string `bun:"assigned_provider_id,nullzero" json:"assigned_provider_id,omitempty"`
	DisplayName        string `bun:"display_name" json:"display_name,omitempty"`
	Email              string `bun:"email" json:"email,omitempty"`
}

// Name falls back to the id when no display name is on file.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

type Actor struct {
	ID   string
	Role Role
}
