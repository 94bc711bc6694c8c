package alerts

import "time"

const (
	TaskNotificationEmail = "email:notification"

	queueEmails = "emails"
)

// EmailEnvelope is what a Sender needs to deliver one message.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NotificationEmailPayload mirrors one persisted notification.
type NotificationEmailPayload struct {
	NotificationID string        `json:"notification_id"`
	UserID         string        `json:"user_id"`
	MatchID        string        `json:"match_id,omitempty"`
	Event          string        `json:"event"`
	Envelope       EmailEnvelope `json:"envelope"`
	SentAt         time.Time     `json:"sent_at"`
}
