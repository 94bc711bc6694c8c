package user

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sudo-init-do/carrypal/internal/apperr"
)

// Directory answers who a user is: display names for notifications, the
// arbiter role for dispute resolution, and profiles.
type Directory struct {
	store Store
	now   func() time.Time
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

func (d *Directory) DisplayName(ctx context.Context, userID string) (string, error) {
	u, err := d.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

func (d *Directory) IsArbiter(ctx context.Context, userID string) (bool, error) {
	u, err := d.store.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Role == RoleArbiter, nil
}

func (d *Directory) Get(ctx context.Context, userID string) (User, error) {
	u, err := d.store.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, err, "failed to fetch user")
	}
	return u, nil
}

// UpdateProfileRequest carries the editable profile fields. Empty fields are
// left unchanged.
type UpdateProfileRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateProfile creates or updates the caller's own profile.
func (d *Directory) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case len(req.Name) > 100:
		return User{}, apperr.Validation("name too long (max 100 characters)")
	case req.Email != "" && !strings.Contains(req.Email, "@"):
		return User{}, apperr.Validation("invalid email")
	case len(req.Bio) > 1000:
		return User{}, apperr.Validation("bio too long (max 1000 characters)")
	}
	if req.AvatarURL != "" {
		if u, err := url.Parse(req.AvatarURL); err != nil || u.Scheme == "" || u.Host == "" {
			return User{}, apperr.Validation("avatar_url must be an absolute URL")
		}
	}
	u, err := d.store.UpsertUser(ctx, User{
		ID:        userID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      RoleMember,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		CreatedAt: d.now().UTC(),
	})
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, err, "failed to update profile")
	}
	return u, nil
}

// Promote grants role to an existing user.
func (d *Directory) Promote(ctx context.Context, userID string, role Role) error {
	if role != RoleMember && role != RoleArbiter {
		return apperr.Validation("unknown role %q", role)
	}
	err := d.store.SetRole(ctx, userID, role)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("no user with id %s", userID)
	}
	return err
}
