package memory

import (
	"context"

	"github.com/sudo-init-do/carrypal/internal/user"
)

func (s *Store) UpsertUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		if u.Role == "" {
			u.Role = user.RoleMember
		}
		s.users[u.ID] = u
		return u, nil
	}
	if u.Name != "" {
		existing.Name = u.Name
	}
	if u.Email != "" {
		existing.Email = u.Email
	}
	if u.Bio != "" {
		existing.Bio = u.Bio
	}
	if u.AvatarURL != "" {
		existing.AvatarURL = u.AvatarURL
	}
	s.users[u.ID] = existing
	return existing, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *Store) SetRole(_ context.Context, id string, role user.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Role = role
	s.users[id] = u
	return nil
}
