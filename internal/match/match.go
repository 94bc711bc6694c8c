// Package match owns the lifecycle of a pairing between a sender's package
// and a traveler's trip. The Service is the only component that changes a
// match's status, and the only one that asks the escrow ledger or the
// notifier to act.
package match

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/escrow"
)

var (
	// ErrNotFound is returned by stores for unknown match ids.
	ErrNotFound = errors.New("match not found")
	// ErrActiveExists is returned by CreateMatch when the package or trip is
	// already attached to a non-terminal match.
	ErrActiveExists = errors.New("package or trip already attached to an active match")
)

// Match is one sender/traveler pairing for one package on one trip. Escrow
// travels with the match so both are read and written together.
type Match struct {
	ID           string          `json:"id"`
	PackageID    string          `json:"package_id"`
	TripID       string          `json:"trip_id"`
	SenderID     string          `json:"sender_id"`
	TravelerID   string          `json:"traveler_id"`
	ProposedBy   string          `json:"proposed_by"`
	Status       Status          `json:"status"`
	AgreedReward decimal.Decimal `json:"agreed_reward"`
	TrackingCode string          `json:"tracking_code,omitempty"`
	// DisputedFrom records the status the match was in when the dispute opened.
	DisputedFrom Status     `json:"disputed_from,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Escrow escrow.Record `json:"escrow"`
}

// IsParty reports whether userID is the sender or the traveler.
func (m Match) IsParty(userID string) bool {
	return userID != "" && (userID == m.SenderID || userID == m.TravelerID)
}

// Transition is one committed status change, kept for audit.
type Transition struct {
	MatchID string    `json:"match_id"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	ActorID string    `json:"actor_id"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Store is the persistence collaborator. UpdateMatch is an atomic
// read-modify-write: fn sees the current match and mutates it in place; if fn
// returns an error nothing is written. Concurrent updates of one match are
// serialized.
type Store interface {
	CreateMatch(ctx context.Context, m Match, t Transition) error
	GetMatch(ctx context.Context, id string) (Match, error)
	UpdateMatch(ctx context.Context, id string, fn func(m *Match) (Transition, error)) (Match, error)
	ListMatchesForUser(ctx context.Context, userID string, status Status) ([]Match, error)
	// ListMatchesByStatus returns every match in status, least recently
	// updated first.
	ListMatchesByStatus(ctx context.Context, status Status) ([]Match, error)
	MatchHistory(ctx context.Context, id string) ([]Transition, error)
	// DeliveredBefore lists matches DELIVERED at or before cutoff.
	DeliveredBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
