package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sudo-init-do/carrypal/internal/config"
)

// Plunk sends through the Plunk HTTP API.
type Plunk struct {
	apiKey  string
	from    string
	replyTo string
	url     string
	client  *http.Client
}

func NewPlunk(cfg config.MailConfig) *Plunk {
	return &Plunk{
		apiKey:  cfg.PlunkAPIKey,
		from:    cfg.PlunkFrom,
		replyTo: cfg.ReplyTo,
		url:     cfg.PlunkAPIURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type plunkSendBody struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

func (p *Plunk) Send(ctx context.Context, env EmailEnvelope) error {
	b, err := json.Marshal(plunkSendBody{
		To:      env.To,
		Subject: env.Subject,
		Body:    env.Body,
		From:    p.from,
		Reply:   p.replyTo,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); len(body) > 0 {
			return fmt.Errorf("plunk send failed: status=%d body=%s", resp.StatusCode, body)
		}
		return fmt.Errorf("plunk send failed: status=%d", resp.StatusCode)
	}
	return nil
}
