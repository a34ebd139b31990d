package provider

import (
	"context"

	"github.com/shahar-caura/relay/internal/transport"
)

// Sender posts a JSON payload to an endpoint and returns the fully read response.
// *transport.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, url string, payload any) (*transport.Response, error)
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
