package notifier

import (
	"context"
	"fmt"

	"github.com/shahar-caura/relay/internal/agent"
	"github.com/shahar-caura/relay/internal/intent"
	"github.com/shahar-caura/relay/internal/provider"
)

// Format renders an actionable result as a one-line notification.
// It returns "" for NoAction.
func Format(res *intent.Result) string {
	if res == nil || res.Intent == intent.NoAction {
		return ""
	}

	recipient, ok := res.Params.Recipient()
	if !ok || recipient == "" {
		recipient = "(no recipient)"
	}

	line := fmt.Sprintf("%s -> %s", res.Intent, recipient)
	if msg, ok := res.Params.Message(); ok && msg != "" {
		line += ": " + msg
	}
	return line
}

// Hook notifies n about every successful actionable classification.
func Hook(n provider.Notifier) agent.Hook {
	return func(ctx context.Context, _ string, res *intent.Result, err error) error {
		if err != nil {
			return nil
		}
		line := Format(res)
		if line == "" {
			return nil
		}
		return n.Notify(ctx, line)
	}
}
