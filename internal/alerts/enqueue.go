package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/carrypal/internal/notify"
	"github.com/sudo-init-do/carrypal/internal/user"
)

// Users resolves a recipient's email address.
type Users interface {
	GetUser(ctx context.Context, id string) (user.User, error)
}

// Enqueuer turns notifications into email tasks. It implements notify.Mailer.
type Enqueuer struct {
	client *asynq.Client
	users  Users
	appURL string
}

func NewEnqueuer(client *asynq.Client, users Users, appURL string) *Enqueuer {
	return &Enqueuer{client: client, users: users, appURL: strings.TrimRight(appURL, "/")}
}

// EnqueueNotification schedules an email for n. Users without an address on
// file are skipped.
func (e *Enqueuer) EnqueueNotification(ctx context.Context, n notify.Notification) error {
	u, err := e.users.GetUser(ctx, n.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if u.Email == "" {
		return nil
	}

	task, err := NotificationTask(n, u, e.appURL)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(queueEmails), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskNotificationEmail, err)
	}
	log.Printf("[alerts] queued %s for %s", n.Event, n.UserID)
	return nil
}

// NotificationTask builds the task for sending n to u.
func NotificationTask(n notify.Notification, u user.User, appURL string) (*asynq.Task, error) {
	name := u.Name
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hi %s,\n\n%s\n", name, n.Message)
	if n.MatchID != "" && appURL != "" {
		body += fmt.Sprintf("\nView the match: %s/matches/%s\n", appURL, n.MatchID)
	}
	body += "\nCarryPal"

	payload := NotificationEmailPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		MatchID:        n.MatchID,
		Event:          string(n.Event),
		Envelope:       EmailEnvelope{To: u.Email, Subject: n.Title, Body: body},
		SentAt:         time.Now().UTC(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return asynq.NewTask(TaskNotificationEmail, b), nil
}
