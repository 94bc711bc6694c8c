package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/carrypal/internal/apperr"
)

// Store persists notifications. Inserts are append-only; only the read flag
// changes afterwards.
type Store interface {
	AppendNotifications(ctx context.Context, items []Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// Directory resolves display names for the dispatcher.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Publisher pushes a notification to live connections.
type Publisher interface {
	Publish(userID string, n Notification)
}

// Mailer forwards a notification by email.
type Mailer interface {
	EnqueueNotification(ctx context.Context, n Notification) error
}

// Notifier delivers the notifications an event implies. Delivery is
// best-effort and at-most-once: failures are logged, never returned.
type Notifier struct {
	store     Store
	directory Directory
	publisher Publisher
	mailer    Mailer
	now       func() time.Time
}

type Option func(*Notifier)

func WithPublisher(p Publisher) Option { return func(n *Notifier) { n.publisher = p } }
func WithMailer(m Mailer) Option       { return func(n *Notifier) { n.mailer = m } }
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func NewNotifier(store Store, directory Directory, opts ...Option) *Notifier {
	n := &Notifier{store: store, directory: directory, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify dispatches evt and delivers the result. It returns what was
// persisted; nil when persistence failed.
func (n *Notifier) Notify(ctx context.Context, evt Event) []Notification {
	evt = n.resolveNames(ctx, evt)
	items := Dispatch(evt)
	if len(items) == 0 {
		return nil
	}
	now := n.now().UTC()
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].CreatedAt = now
	}

	if err := n.store.AppendNotifications(ctx, items); err != nil {
		log.Printf("[notify][ERROR] persist %s for match %s: %v", evt.Kind, evt.MatchID, err)
		return nil
	}
	for _, item := range items {
		if n.publisher != nil {
			n.publisher.Publish(item.UserID, item)
		}
		if n.mailer != nil {
			if err := n.mailer.EnqueueNotification(ctx, item); err != nil {
				log.Printf("[notify][ERROR] enqueue email for %s: %v", item.UserID, err)
			}
		}
	}
	log.Printf("[notify] %s match=%s recipients=%d", evt.Kind, evt.MatchID, len(items))
	return items
}

func (n *Notifier) resolveNames(ctx context.Context, evt Event) Event {
	if n.directory == nil {
		return evt
	}
	if evt.SenderName == "" && evt.SenderID != "" {
		if name, err := n.directory.DisplayName(ctx, evt.SenderID); err == nil {
			evt.SenderName = name
		}
	}
	if evt.TravelerName == "" && evt.TravelerID != "" {
		if name, err := n.directory.DisplayName(ctx, evt.TravelerID); err == nil {
			evt.TravelerName = name
		}
	}
	return evt
}

// Inbox returns a user's notifications, newest first.
func (n *Notifier) Inbox(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return n.store.ListNotifications(ctx, userID, unreadOnly, limit)
}

func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID string) error {
	err := n.store.MarkNotificationRead(ctx, userID, notificationID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("notification not found")
	}
	return err
}

func (n *Notifier) UnreadCount(ctx context.Context, userID string) (int, error) {
	return n.store.UnreadCount(ctx, userID)
}
