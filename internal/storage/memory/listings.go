package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/sudo-init-do/carrypal/internal/listing"
)

func (s *Store) CreateTrip(_ context.Context, t listing.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[t.ID] = t
	return nil
}

func (s *Store) GetTrip(_ context.Context, id string) (listing.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[id]
	if !ok {
		return listing.Trip{}, listing.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTripsByTraveler(_ context.Context, travelerID string) ([]listing.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []listing.Trip
	for _, t := range s.trips {
		if t.TravelerID == travelerID {
			out = append(out, t)
		}
	}
	sortTrips(out)
	return out, nil
}

func (s *Store) SetTripStatus(_ context.Context, id string, status listing.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return listing.ErrNotFound
	}
	t.Status = status
	s.trips[id] = t
	return nil
}

func (s *Store) OpenTrips(_ context.Context) ([]listing.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, busy := s.activeListings()
	var out []listing.Trip
	for _, t := range s.trips {
		if t.Status == listing.StatusOpen && !busy[t.ID] {
			out = append(out, t)
		}
	}
	sortTrips(out)
	return out, nil
}

func (s *Store) CreatePackage(_ context.Context, p listing.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[p.ID] = p
	return nil
}

func (s *Store) GetPackage(_ context.Context, id string) (listing.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packages[id]
	if !ok {
		return listing.Package{}, listing.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPackagesBySender(_ context.Context, senderID string) ([]listing.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []listing.Package
	for _, p := range s.packages {
		if p.SenderID == senderID {
			out = append(out, p)
		}
	}
	sortPackages(out)
	return out, nil
}

func (s *Store) SetPackageStatus(_ context.Context, id string, status listing.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return listing.ErrNotFound
	}
	p.Status = status
	s.packages[id] = p
	return nil
}

func (s *Store) OpenPackages(_ context.Context) ([]listing.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	busy, _ := s.activeListings()
	var out []listing.Package
	for _, p := range s.packages {
		if p.Status == listing.StatusOpen && !busy[p.ID] {
			out = append(out, p)
		}
	}
	sortPackages(out)
	return out, nil
}

func sortTrips(ts []listing.Trip) {
	slices.SortFunc(ts, func(a, b listing.Trip) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func sortPackages(ps []listing.Package) {
	slices.SortFunc(ps, func(a, b listing.Package) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
