package notifier

import (
	"context"
	"fmt"

	"github.com/shahar-caura/relay/internal/provider"
)

// Slack sends notifications via an incoming webhook.
type Slack struct {
	webhookURL string
	sender     provider.Sender
}

// New returns a Slack notifier that posts to webhookURL through sender.
func New(webhookURL string, sender provider.Sender) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		sender:     sender,
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Notify sends a message to the configured Slack webhook.
func (s *Slack) Notify(ctx context.Context, message string) error {
	resp, err := s.sender.Send(ctx, s.webhookURL, webhookPayload{Text: message})
	if err != nil {
		return fmt.Errorf("slack: sending request: %w", err)
	}

	if string(resp.Body) != "ok" {
		return fmt.Errorf("slack: unexpected response body: %s", resp.Body)
	}

	return nil
}
