package memory

import (
	"context"

	"github.com/sudo-init-do/carrypal/internal/notify"
)

func (s *Store) AppendNotifications(_ context.Context, items []notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, items...)
	return nil
}

// ListNotifications walks the log backwards so the newest come first.
func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []notify.Notification
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID && s.notifications[i].UserID == userID {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return notify.ErrNotFound
}

func (s *Store) UnreadCount(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.notifications {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}
