package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sudo-init-do/carrypal/internal/match"
)

func (s *Store) CreateMatch(_ context.Context, m match.Match, t match.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.matches {
		if other.Status.Terminal() {
			continue
		}
		if other.PackageID == m.PackageID || other.TripID == m.TripID {
			return match.ErrActiveExists
		}
	}
	s.matches[m.ID] = m
	s.history[m.ID] = []match.Transition{t}
	s.locks[m.ID] = &sync.Mutex{}
	return nil
}

func (s *Store) GetMatch(_ context.Context, id string) (match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return match.Match{}, match.ErrNotFound
	}
	return m, nil
}

// UpdateMatch holds the match's lock while fn runs on a copy; the copy
// replaces the stored match only when fn succeeds.
func (s *Store) UpdateMatch(ctx context.Context, id string, fn func(m *match.Match) (match.Transition, error)) (match.Match, error) {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return match.Match{}, match.ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return match.Match{}, err
	}
	working, err := s.GetMatch(ctx, id)
	if err != nil {
		return match.Match{}, err
	}
	t, err := fn(&working)
	if err != nil {
		return match.Match{}, err
	}

	s.mu.Lock()
	s.matches[id] = working
	s.history[id] = append(s.history[id], t)
	s.mu.Unlock()
	return working, nil
}

func (s *Store) ListMatchesForUser(_ context.Context, userID string, status match.Status) ([]match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []match.Match
	for _, m := range s.matches {
		if !m.IsParty(userID) {
			continue
		}
		if status != "" && m.Status != status {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b match.Match) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) ListMatchesByStatus(_ context.Context, status match.Status) ([]match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []match.Match
	for _, m := range s.matches {
		if m.Status == status {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b match.Match) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) MatchHistory(_ context.Context, id string) ([]match.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[id]
	if !ok {
		return nil, match.ErrNotFound
	}
	return slices.Clone(h), nil
}

func (s *Store) DeliveredBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, m := range s.matches {
		if m.Status == match.StatusDelivered && m.DeliveredAt != nil && !m.DeliveredAt.After(cutoff) {
			out = append(out, m.ID)
		}
	}
	slices.Sort(out)
	return out, nil
}

// activeListings returns the package and trip ids held by non-terminal
// matches. Callers hold mu.
func (s *Store) activeListings() (packages, trips map[string]bool) {
	packages, trips = make(map[string]bool), make(map[string]bool)
	for _, m := range s.matches {
		if m.Status.Terminal() {
			continue
		}
		packages[m.PackageID] = true
		trips[m.TripID] = true
	}
	return packages, trips
}
