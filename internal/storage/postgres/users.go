package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/carrypal/internal/user"
)

// UpsertUser inserts the user or fills in the non-empty profile fields. The
// role column is only ever set on insert.
func (s *Store) UpsertUser(ctx context.Context, u user.User) (user.User, error) {
	role := u.Role
	if role == "" {
		role = user.RoleMember
	}
	var out user.User
	var outRole string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, role, bio, avatar_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		     name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		     email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		     bio = COALESCE(NULLIF(EXCLUDED.bio, ''), users.bio),
		     avatar_url = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), users.avatar_url)
		 RETURNING id, name, email, role, bio, avatar_url, created_at`,
		u.ID, u.Name, u.Email, string(role), u.Bio, u.AvatarURL, u.CreatedAt,
	).Scan(&out.ID, &out.Name, &out.Email, &outRole, &out.Bio, &out.AvatarURL, &out.CreatedAt)
	if err != nil {
		return user.User{}, fmt.Errorf("upsert user: %w", err)
	}
	out.Role = user.Role(outRole)
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, role, bio, avatar_url, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &role, &u.Bio, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("load user: %w", err)
	}
	u.Role = user.Role(role)
	return u, nil
}

func (s *Store) SetRole(ctx context.Context, id string, role user.Role) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, string(role), id)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// UserIDByEmail resolves the id behind an email address.
func (s *Store) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", user.ErrNotFound
	}
	return id, err
}
