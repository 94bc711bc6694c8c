package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	items []Notification
	err   error
}

func (f *fakeStore) AppendNotifications(_ context.Context, items []Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeStore) ListNotifications(_ context.Context, userID string, _ bool, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range f.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkNotificationRead(context.Context, string, string) error { return nil }
func (f *fakeStore) UnreadCount(context.Context, string) (int, error)          { return len(f.items), nil }

type fakeDirectory map[string]string

func (d fakeDirectory) DisplayName(_ context.Context, id string) (string, error) {
	if name, ok := d[id]; ok {
		return name, nil
	}
	return "", errors.New("unknown user")
}

type recordingPublisher struct{ got []string }

func (p *recordingPublisher) Publish(userID string, _ Notification) { p.got = append(p.got, userID) }

type failingMailer struct{ calls int }

func (m *failingMailer) EnqueueNotification(context.Context, Notification) error {
	m.calls++
	return errors.New("redis down")
}

func TestNotifier_PersistsPublishesAndMails(t *testing.T) {
	store := &fakeStore{}
	pub := &recordingPublisher{}
	mail := &failingMailer{}
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	n := NewNotifier(store, fakeDirectory{"s1": "Sam", "t1": "Tara"},
		WithPublisher(pub), WithMailer(mail), WithClock(func() time.Time { return now }))

	got := n.Notify(context.Background(), Event{Kind: PaymentConfirmed, MatchID: "m1", SenderID: "s1", TravelerID: "t1"})

	require.Len(t, got, 2)
	assert.Len(t, store.items, 2)
	assert.Equal(t, []string{"t1", "s1"}, pub.got)
	assert.Equal(t, 2, mail.calls, "mail failures are logged, not fatal")
	for _, item := range got {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, now, item.CreatedAt)
	}
	assert.Contains(t, got[0].Message, "Sam")
}

func TestNotifier_PersistFailureIsSwallowed(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	pub := &recordingPublisher{}
	n := NewNotifier(store, nil, WithPublisher(pub))

	got := n.Notify(context.Background(), Event{Kind: MatchAccepted, SenderID: "s1", TravelerID: "t1"})

	assert.Nil(t, got)
	assert.Empty(t, pub.got)
}

func TestNotifier_UnknownNamesFallBack(t *testing.T) {
	store := &fakeStore{}
	n := NewNotifier(store, fakeDirectory{})

	got := n.Notify(context.Background(), Event{Kind: MatchAccepted, SenderID: "s1", TravelerID: "t1"})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "The traveler")
}
