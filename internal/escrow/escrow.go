// Package escrow tracks funds held against a match. The ledger never decides
// when to move money; the match state machine drives it, and every operation
// checks the record's current state first.
package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is the escrow record's position in its own lifecycle.
type State string

const (
	StateNone           State = "NONE"
	StateHeld           State = "HELD"
	StatePendingRelease State = "PENDING_RELEASE"
	StateReleased       State = "RELEASED"
	StateRefunded       State = "REFUNDED"
	StateDisputedHold   State = "DISPUTED_HOLD"
)

// Terminal reports whether no further operation may touch the record.
func (s State) Terminal() bool {
	return s == StateReleased || s == StateRefunded
}

// Funded reports whether money is currently held.
func (s State) Funded() bool {
	switch s {
	case StateHeld, StatePendingRelease, StateDisputedHold:
		return true
	}
	return false
}

// Record is the escrow attached to exactly one match.
type Record struct {
	MatchID   string          `json:"match_id"`
	Amount    decimal.Decimal `json:"amount"`
	State     State           `json:"state"`
	CaptureID string          `json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewRecord returns the empty record created alongside a proposed match.
func NewRecord(matchID string, now time.Time) Record {
	return Record{MatchID: matchID, Amount: decimal.Zero, State: StateNone, UpdatedAt: now}
}
