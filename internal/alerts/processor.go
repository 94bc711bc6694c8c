package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// Worker drains the email queue.
type Worker struct {
	server *asynq.Server
	sender Sender
}

func NewWorker(redis asynq.RedisClientOpt, sender Sender) *Worker {
	return &Worker{
		server: asynq.NewServer(redis, asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{queueEmails: 10},
		}),
		sender: sender,
	}
}

// Handler routes task types to their handlers.
func (w *Worker) Handler() asynq.Handler {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotificationEmail, w.handleNotificationEmail)
	return mux
}

// Run processes tasks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.Handler()); err != nil {
		return fmt.Errorf("start email worker: %w", err)
	}
	log.Println("[alerts] worker started")
	<-ctx.Done()
	w.server.Shutdown()
	log.Println("[alerts] worker stopped")
	return nil
}

func (w *Worker) handleNotificationEmail(ctx context.Context, t *asynq.Task) error {
	var p NotificationEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.sender.Send(ctx, p.Envelope); err != nil {
		log.Printf("[alerts][ERROR] %s for %s failed: %v", p.Event, p.UserID, err)
		return err
	}
	log.Printf("[alerts] %s sent -> to=%s match=%s", p.Event, p.Envelope.To, p.MatchID)
	return nil
}
