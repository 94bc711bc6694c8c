// Package notify turns match lifecycle events into user-facing notifications
// and delivers them: persisted inbox, websocket push and optional email.
package notify

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when marking a notification the user does not own.
var ErrNotFound = errors.New("notification not found")

// Type is the notification's severity as shown by the frontend.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeSuccess Type = "success"
	TypeError   Type = "error"
)

// EventKind names a lifecycle transition worth telling someone about.
type EventKind string

const (
	MatchProposed     EventKind = "match.proposed"
	MatchAccepted     EventKind = "match.accepted"
	MatchDeclined     EventKind = "match.declined"
	MatchCancelled    EventKind = "match.cancelled"
	PaymentConfirmed  EventKind = "payment.confirmed"
	PackagePickedUp   EventKind = "package.picked_up"
	PackageInTransit  EventKind = "package.in_transit"
	PackageDelivered  EventKind = "package.delivered"
	DeliveryConfirmed EventKind = "delivery.confirmed"
	DisputeRaised     EventKind = "dispute.raised"
	DisputeResolved   EventKind = "dispute.resolved"
)

// Event is what the match state machine hands over after a committed
// transition. Names are optional; the dispatcher falls back to generic
// phrasing.
type Event struct {
	Kind         EventKind
	MatchID      string
	SenderID     string
	TravelerID   string
	SenderName   string
	TravelerName string
	ActorID      string
	Amount       decimal.Decimal
	TrackingCode string
	Reason       string
	// Outcome is set on DisputeResolved: "favor_sender" or "favor_traveler".
	Outcome string
}

// Notification is one message to one user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Event     EventKind `json:"event"`
	MatchID   string    `json:"match_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
