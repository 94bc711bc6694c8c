// Package memory is an in-process implementation of every store the server
// needs. It backs STORAGE=memory and the handler tests.
package memory

import (
	"sync"

	"github.com/sudo-init-do/carrypal/internal/listing"
	"github.com/sudo-init-do/carrypal/internal/match"
	"github.com/sudo-init-do/carrypal/internal/notify"
	"github.com/sudo-init-do/carrypal/internal/review"
	"github.com/sudo-init-do/carrypal/internal/user"
)

type Store struct {
	mu sync.RWMutex

	matches map[string]match.Match
	history map[string][]match.Transition
	// locks serializes updates per match; the map itself is guarded by mu.
	locks map[string]*sync.Mutex

	trips    map[string]listing.Trip
	packages map[string]listing.Package

	notifications []notify.Notification
	reviews       []review.Review
	users         map[string]user.User
}

func New() *Store {
	return &Store{
		matches:  make(map[string]match.Match),
		history:  make(map[string][]match.Transition),
		locks:    make(map[string]*sync.Mutex),
		trips:    make(map[string]listing.Trip),
		packages: make(map[string]listing.Package),
		users:    make(map[string]user.User),
	}
}
