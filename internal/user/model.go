package user

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleMember  Role = "member"
	RoleArbiter Role = "arbiter"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists users. UpsertUser creates the user when missing and
// otherwise overwrites only the non-empty profile fields; it never changes
// the role.
type Store interface {
	UpsertUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	SetRole(ctx context.Context, id string, role Role) error
}
