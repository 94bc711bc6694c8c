package match

import (
	"strings"
)

// Status is the match's position in its lifecycle.
type Status string

const (
	StatusProposed  Status = "PROPOSED"
	StatusAccepted  Status = "ACCEPTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusPickedUp  Status = "PICKED_UP"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusDisputed  Status = "DISPUTED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusProposed, StatusAccepted, StatusConfirmed, StatusPickedUp, StatusInTransit,
	StatusDelivered, StatusCompleted, StatusCancelled, StatusDisputed,
}

// edges is the complete transition graph.
var edges = map[Status][]Status{
	StatusProposed:  {StatusAccepted, StatusCancelled, StatusDisputed},
	StatusAccepted:  {StatusConfirmed, StatusCancelled, StatusDisputed},
	StatusConfirmed: {StatusPickedUp, StatusDisputed},
	StatusPickedUp:  {StatusInTransit, StatusDisputed},
	StatusInTransit: {StatusDelivered, StatusDisputed},
	StatusDelivered: {StatusCompleted, StatusDisputed},
	StatusDisputed:  {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// simpleNames is the lowercase vocabulary some clients use for the same
// lifecycle. PICKED_UP and IN_TRANSIT share "in_transit"; COMPLETED shows as
// "confirmed" (receipt confirmed by the sender).
var simpleNames = map[Status]string{
	StatusProposed:  "pending",
	StatusAccepted:  "accepted",
	StatusConfirmed: "paid",
	StatusPickedUp:  "in_transit",
	StatusInTransit: "in_transit",
	StatusDelivered: "delivered",
	StatusCompleted: "confirmed",
	StatusCancelled: "cancelled",
	StatusDisputed:  "disputed",
}

var simpleAliases = map[string]Status{
	"pending":    StatusProposed,
	"accepted":   StatusAccepted,
	"paid":       StatusConfirmed,
	"in_transit": StatusInTransit,
	"delivered":  StatusDelivered,
	"confirmed":  StatusCompleted,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"disputed":   StatusDisputed,
}

// Simple renders s in the lowercase vocabulary.
func (s Status) Simple() string {
	if name, ok := simpleNames[s]; ok {
		return name
	}
	return strings.ToLower(string(s))
}

// ParseStatus accepts canonical names in any case and the lowercase aliases.
// Lowercase input is tried as an alias first, so "confirmed" means COMPLETED.
func ParseStatus(raw string) (Status, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == strings.ToLower(trimmed) {
		if st, ok := simpleAliases[trimmed]; ok {
			return st, true
		}
	}
	st := Status(strings.ToUpper(trimmed))
	return st, st.Valid()
}
