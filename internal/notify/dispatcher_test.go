package notify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEvent(kind EventKind) Event {
	return Event{
		Kind:         kind,
		MatchID:      "m1",
		SenderID:     "s1",
		TravelerID:   "t1",
		SenderName:   "Sam",
		TravelerName: "Tara",
		Amount:       decimal.NewFromInt(50),
	}
}

func recipients(items []Notification) []string {
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.UserID)
	}
	return out
}

func TestDispatch_Audiences(t *testing.T) {
	tests := []struct {
		kind EventKind
		want []string
	}{
		{MatchProposed, []string{"t1"}},
		{MatchAccepted, []string{"s1"}},
		{MatchDeclined, []string{"s1"}},
		{PaymentConfirmed, []string{"t1", "s1"}},
		{PackagePickedUp, []string{"s1", "t1"}},
		{PackageInTransit, []string{"s1"}},
		{PackageDelivered, []string{"s1", "t1"}},
		{DeliveryConfirmed, []string{"s1", "t1"}},
		{DisputeRaised, []string{"s1", "t1"}},
		{DisputeResolved, []string{"s1", "t1"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := Dispatch(baseEvent(tt.kind))
			assert.Equal(t, tt.want, recipients(got))
			for _, n := range got {
				assert.Equal(t, tt.kind, n.Event)
				assert.Equal(t, "m1", n.MatchID)
			}
		})
	}
}

func TestDispatch_AcceptedIsSuccess(t *testing.T) {
	got := Dispatch(baseEvent(MatchAccepted))
	require.Len(t, got, 1)
	assert.Equal(t, TypeSuccess, got[0].Type)
	assert.Contains(t, got[0].Message, "Tara")
}

func TestDispatch_ConfirmedEchoesAmountToTraveler(t *testing.T) {
	got := Dispatch(baseEvent(DeliveryConfirmed))
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[1].UserID)
	assert.Contains(t, got[1].Message, "50.00")
}

func TestDispatch_ProposedByTravelerGoesToSender(t *testing.T) {
	evt := baseEvent(MatchProposed)
	evt.ActorID = "t1"

	assert.Equal(t, []string{"s1"}, recipients(Dispatch(evt)))
}

func TestDispatch_CancelledSkipsActor(t *testing.T) {
	evt := baseEvent(MatchCancelled)
	evt.ActorID = "s1"
	evt.Reason = "plans changed"

	got := Dispatch(evt)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].UserID)
	assert.Contains(t, got[0].Message, "plans changed")

	evt.ActorID = "arbiter"
	assert.Len(t, Dispatch(evt), 2)
}

func TestDispatch_FallbackNames(t *testing.T) {
	evt := baseEvent(MatchProposed)
	evt.SenderName = ""
	evt.TravelerName = "  "

	got := Dispatch(evt)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "A user")

	accepted := baseEvent(MatchAccepted)
	accepted.TravelerName = ""
	assert.Contains(t, Dispatch(accepted)[0].Message, "The traveler")
}

func TestDispatch_MissingOptionalFieldsDoNotPanic(t *testing.T) {
	for _, kind := range []EventKind{MatchProposed, PaymentConfirmed, DeliveryConfirmed, DisputeResolved, MatchCancelled} {
		assert.NotPanics(t, func() { Dispatch(Event{Kind: kind, SenderID: "s1"}) })
	}
	assert.Empty(t, Dispatch(Event{Kind: "unknown", SenderID: "s1"}))
}

func TestDispatch_IsPure(t *testing.T) {
	evt := baseEvent(PaymentConfirmed)
	evt.TrackingCode = "CP-1234"

	assert.Equal(t, Dispatch(evt), Dispatch(evt))
}
