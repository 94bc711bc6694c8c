package notify

import (
	"fmt"
	"strings"
)

// Dispatch maps a lifecycle event to the notifications it implies. It is pure:
// the same event always yields the same tuples, in the same order. IDs and
// timestamps are left for the Notifier to fill in.
func Dispatch(evt Event) []Notification {
	sender := nameOr(evt.SenderName, "A user")
	traveler := nameOr(evt.TravelerName, "The traveler")
	amount := formatAmount(evt)

	var out []Notification
	add := func(userID string, typ Type, title, message string) {
		if userID == "" {
			return
		}
		out = append(out, Notification{
			UserID:  userID,
			Title:   title,
			Message: message,
			Type:    typ,
			Event:   evt.Kind,
			MatchID: evt.MatchID,
		})
	}

	switch evt.Kind {
	case MatchProposed:
		if evt.ActorID != "" && evt.ActorID == evt.TravelerID {
			add(evt.SenderID, TypeInfo, "New delivery offer",
				fmt.Sprintf("%s offered to carry your package for %s.", traveler, amount))
		} else {
			add(evt.TravelerID, TypeInfo, "New delivery request",
				fmt.Sprintf("%s wants to send a package with you for %s.", sender, amount))
		}
	case MatchAccepted:
		add(evt.SenderID, TypeSuccess, "Match accepted",
			fmt.Sprintf("%s accepted your delivery request. Complete payment to confirm.", traveler))
	case MatchDeclined:
		add(evt.SenderID, TypeWarning, "Match declined",
			fmt.Sprintf("%s declined your delivery request.", traveler))
	case MatchCancelled:
		msg := "The match was cancelled."
		if evt.Reason != "" {
			msg = fmt.Sprintf("The match was cancelled: %s", evt.Reason)
		}
		for _, id := range counterparts(evt) {
			add(id, TypeWarning, "Match cancelled", msg)
		}
	case PaymentConfirmed:
		add(evt.TravelerID, TypeSuccess, "Payment secured",
			fmt.Sprintf("%s paid %s. It is held in escrow until delivery.", sender, amount))
		add(evt.SenderID, TypeInfo, "Payment held in escrow",
			fmt.Sprintf("Your payment of %s is held until you confirm delivery.%s", amount, trackingSuffix(evt)))
	case PackagePickedUp:
		add(evt.SenderID, TypeInfo, "Package picked up",
			fmt.Sprintf("%s picked up your package.%s", traveler, trackingSuffix(evt)))
		add(evt.TravelerID, TypeInfo, "Pickup recorded",
			"Pickup confirmed. Mark the package in transit when you set off.")
	case PackageInTransit:
		add(evt.SenderID, TypeInfo, "Package in transit",
			fmt.Sprintf("%s is on the way with your package.", traveler))
	case PackageDelivered:
		add(evt.SenderID, TypeSuccess, "Package delivered",
			fmt.Sprintf("%s marked your package delivered. Confirm receipt to release payment.", traveler))
		add(evt.TravelerID, TypeInfo, "Delivery recorded",
			"Delivery recorded. Payment is released once the sender confirms.")
	case DeliveryConfirmed:
		add(evt.SenderID, TypeSuccess, "Delivery complete",
			fmt.Sprintf("You confirmed delivery. %s has been released to %s.", amount, traveler))
		add(evt.TravelerID, TypeSuccess, "Payment released",
			fmt.Sprintf("Delivery confirmed. You earned %s.", amount))
	case DisputeRaised:
		msg := "A dispute was opened on your match. Funds are frozen until it is resolved."
		if evt.Reason != "" {
			msg = fmt.Sprintf("A dispute was opened on your match: %s. Funds are frozen until it is resolved.", evt.Reason)
		}
		add(evt.SenderID, TypeWarning, "Dispute opened", msg)
		add(evt.TravelerID, TypeWarning, "Dispute opened", msg)
	case DisputeResolved:
		switch evt.Outcome {
		case "favor_sender":
			add(evt.SenderID, TypeInfo, "Dispute resolved",
				fmt.Sprintf("The dispute was resolved in your favor. %s will be refunded.", amount))
			add(evt.TravelerID, TypeInfo, "Dispute resolved",
				"The dispute was resolved in the sender's favor. The match is cancelled.")
		default:
			add(evt.SenderID, TypeInfo, "Dispute resolved",
				fmt.Sprintf("The dispute was resolved in the traveler's favor. %s has been released.", amount))
			add(evt.TravelerID, TypeInfo, "Dispute resolved",
				fmt.Sprintf("The dispute was resolved in your favor. You earned %s.", amount))
		}
	}
	return out
}

// counterparts returns everyone but the actor; both parties when the actor is
// unknown or a third party.
func counterparts(evt Event) []string {
	switch evt.ActorID {
	case evt.SenderID:
		return []string{evt.TravelerID}
	case evt.TravelerID:
		return []string{evt.SenderID}
	}
	return []string{evt.SenderID, evt.TravelerID}
}

func nameOr(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}

func formatAmount(evt Event) string {
	if evt.Amount.IsZero() {
		return "the agreed reward"
	}
	return evt.Amount.StringFixed(2)
}

func trackingSuffix(evt Event) string {
	if evt.TrackingCode == "" {
		return ""
	}
	return " Tracking code: " + evt.TrackingCode + "."
}
